package elasticsearch

// DefaultIndexName is used when no index name is configured.
const DefaultIndexName = "games"

// indexMapping is the settings and mapping of the games index. Prices keep
// six fractional digits through the scaling factor.
const indexMapping = `{
  "settings": {
    "number_of_shards": 1,
    "number_of_replicas": 0,
    "analysis": {
      "analyzer": {
        "game_text": {
          "type": "custom",
          "tokenizer": "standard",
          "filter": ["lowercase", "asciifolding"]
        }
      }
    }
  },
  "mappings": {
    "properties": {
      "id":           { "type": "keyword" },
      "title":        { "type": "text", "analyzer": "game_text", "fields": { "keyword": { "type": "keyword", "ignore_above": 256 } } },
      "description":  { "type": "text", "analyzer": "game_text" },
      "developer":    { "type": "text", "analyzer": "game_text", "fields": { "keyword": { "type": "keyword" } } },
      "publisher":    { "type": "text", "analyzer": "game_text", "fields": { "keyword": { "type": "keyword" } } },
      "price":        { "type": "scaled_float", "scaling_factor": 1000000 },
      "release_date": { "type": "date" }
    }
  }
}`
