package vectorindex

// Query-body builders for the OpenSearch wire protocol. Kept as pure
// functions so the request shapes can be asserted in tests without a server.

// HNSW construction/search parameters, sized for k=100 retrieval.
const (
	efConstruction = 256
	efSearch       = 256
	hnswM          = 32
)

// listSizeCeiling bounds how many pages a listing query returns.
const listSizeCeiling = 1000

func createIndexBody(dimension int) map[string]any {
	return map[string]any{
		"settings": map[string]any{
			"index": map[string]any{
				"knn": true,
			},
		},
		"mappings": map[string]any{
			"properties": map[string]any{
				fieldUniqueID: map[string]any{"type": "keyword"},
				fieldEmbedding: map[string]any{
					"type":      "knn_vector",
					"dimension": dimension,
					"method": map[string]any{
						"name":       "hnsw",
						"space_type": "innerproduct",
						"engine":     "faiss",
						"parameters": map[string]any{
							"ef_construction": efConstruction,
							"ef_search":       efSearch,
							"m":               hnswM,
						},
					},
				},
			},
		},
	}
}

// anyOfFilter matches records whose unique_id equals at least one of the
// given identifiers.
func anyOfFilter(uniqueIDs []string) map[string]any {
	shoulds := make([]map[string]any, 0, len(uniqueIDs))
	for _, uid := range uniqueIDs {
		shoulds = append(shoulds, map[string]any{
			"term": map[string]any{fieldUniqueID: uid},
		})
	}
	return map[string]any{
		"bool": map[string]any{
			"should":               shoulds,
			"minimum_should_match": 1,
		},
	}
}

func searchBody(vector []float32, uniqueIDs []string, k int) map[string]any {
	return map[string]any{
		"query": map[string]any{
			"knn": map[string]any{
				fieldEmbedding: map[string]any{
					"vector": vector,
					"k":      k,
					"filter": anyOfFilter(uniqueIDs),
				},
			},
		},
		"_source": map[string]any{
			"exclude": []string{fieldEmbedding},
		},
	}
}

func listByIDsBody(uniqueIDs []string) map[string]any {
	return map[string]any{
		"size":  listSizeCeiling,
		"query": anyOfFilter(uniqueIDs),
	}
}

func deleteByFileBody(filePath string) map[string]any {
	return map[string]any{
		"query": map[string]any{
			"match": map[string]any{fieldFilePath: filePath},
		},
	}
}

func indexedIDsBody() map[string]any {
	return map[string]any{
		"size": 0,
		"aggs": map[string]any{
			"ids": map[string]any{
				"composite": map[string]any{
					"sources": []map[string]any{
						{"ids": map[string]any{"terms": map[string]any{"field": fieldUniqueID}}},
					},
				},
			},
		},
	}
}
