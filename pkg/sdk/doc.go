// Package venuedex embeds the venuedex search gateway in-process.
//
// Venues live in a SQLite system of record; a Redis (RediSearch + RedisJSON)
// or in-memory index serves ranked and geo-filtered search over them.
//
//	client, _ := venuedex.New(ctx,
//	    venuedex.WithRedis("localhost:6379", ""),
//	    venuedex.WithSQLite("venues.db"),
//	)
//	defer client.Close()
//
//	lat, lon := 10.7769, 106.7009
//	page, _ := client.Search(ctx, venuedex.Query{
//	    Term:    "tennis",
//	    Lat:     &lat,
//	    Lon:     &lon,
//	    Radius:  "5km",
//	    Sort:    "distance",
//	    Filters: map[string]any{"published": true},
//	})
//	for _, h := range page.Data {
//	    fmt.Println(h.Document.Name, *h.DistanceMeters)
//	}
//
// Writes go through Save and Delete and reach the index before they return.
// ReindexAll rebuilds the index from the store.
package venuedex
