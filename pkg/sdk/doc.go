// Package recommender provides a Go client for the recommender HTTP API.
//
// The service answers free-text product queries with the closest catalog
// items. Repeated queries are served from its response cache; the Source
// field of a result tells which path answered.
//
//	client, _ := recommender.New("http://localhost:8000",
//	    recommender.WithAPIKey(os.Getenv("API_KEY")),
//	)
//	recs, err := client.Recommend(ctx, "red summer dress", 5)
//	if errors.Is(err, recommender.ErrValidation) {
//	    var apiErr *recommender.APIError
//	    errors.As(err, &apiErr)
//	    fmt.Println(apiErr.Fields)
//	}
//	for _, item := range recs.Results {
//	    fmt.Println(item.ProductName, item.SimilarityScore)
//	}
//
// Connection failures and 502/503/504 responses are retried with backoff.
// A 500 from /recommend is an upstream search failure and is returned as is.
package recommender
