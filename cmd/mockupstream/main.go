// Command mockupstream serves stand-ins for the Fastly datacenter catalog,
// the status scraper feed, and the edge dictionary item API so the service
// can run locally without credentials.
//
// Usage:
//
//	go run ./cmd/mockupstream -addr :9999
//
//	FASTLY_API_URL=http://localhost:9999 \
//	STATUS_FEED_URL=http://localhost:9999/scraper \
//	FASTLY_API_TOKEN=dev FASTLY_SERVICE_ID=dev FASTLY_DICTIONARY_ID=dev \
//	go run ./cmd/popstatus
package main

import (
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"sync"
)

type coordinates struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type datacenter struct {
	Code        string      `json:"code"`
	Name        string      `json:"name"`
	Group       string      `json:"group"`
	Coordinates coordinates `json:"coordinates"`
	Shield      *string     `json:"shield"`
}

type statusEntry struct {
	Code   string `json:"code"`
	Status string `json:"status"`
}

type dictionaryItem struct {
	DictionaryID string `json:"dictionary_id"`
	ServiceID    string `json:"service_id"`
	ItemKey      string `json:"item_key"`
	ItemValue    string `json:"item_value"`
}

func shield(s string) *string { return &s }

var datacenters = []datacenter{
	{Code: "AMS", Name: "Amsterdam", Group: "Europe", Coordinates: coordinates{Latitude: 52.308, Longitude: 4.764}, Shield: shield("amsterdam-nl")},
	{Code: "LHR", Name: "London", Group: "Europe", Coordinates: coordinates{Latitude: 51.470, Longitude: -0.454}, Shield: shield("london_city-uk")},
	{Code: "IAD", Name: "Ashburn", Group: "United States", Coordinates: coordinates{Latitude: 38.944, Longitude: -77.456}, Shield: shield("iad-va-us")},
	{Code: "SJC", Name: "San Jose", Group: "United States", Coordinates: coordinates{Latitude: 37.363, Longitude: -121.929}},
	{Code: "NRT", Name: "Tokyo", Group: "Asia", Coordinates: coordinates{Latitude: 35.765, Longitude: 140.386}, Shield: shield("tokyo-jp2")},
	{Code: "SYD", Name: "Sydney", Group: "Australia", Coordinates: coordinates{Latitude: -33.946, Longitude: 151.177}},
	{Code: "GRU", Name: "Sao Paulo", Group: "South America", Coordinates: coordinates{Latitude: -23.432, Longitude: -46.469}},
}

var feed = []statusEntry{
	{Code: "AMS", Status: "Operational"},
	{Code: "LHR", Status: "Operational"},
	{Code: "IAD", Status: "Degraded Performance"},
	{Code: "SJC", Status: "Operational"},
	{Code: "NRT", Status: "Maintenance"},
}

// dictionary keeps item values by key, shared across all service and dictionary ids.
type dictionary struct {
	mu    sync.Mutex
	items map[string]string
}

func (d *dictionary) handle(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")

	d.mu.Lock()
	defer d.mu.Unlock()

	if r.Method == http.MethodPut {
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		d.items[key] = r.PostForm.Get("item_value")
		log.Printf("dictionary item %s = %s", key, d.items[key])
	}

	value, ok := d.items[key]
	if !ok {
		http.Error(w, `{"msg":"Record not found"}`, http.StatusNotFound)
		return
	}
	writeJSON(w, dictionaryItem{
		DictionaryID: r.PathValue("dictionary"),
		ServiceID:    r.PathValue("service"),
		ItemKey:      key,
		ItemValue:    value,
	})
}

func main() {
	addr := flag.String("addr", ":9999", "listen address")
	flag.Parse()

	dict := &dictionary{items: map[string]string{"modified_pop_status": "{}"}}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /datacenters", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, datacenters)
	})
	mux.HandleFunc("GET /scraper", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, feed)
	})
	mux.HandleFunc("GET /service/{service}/dictionary/{dictionary}/item/{key}", dict.handle)
	mux.HandleFunc("PUT /service/{service}/dictionary/{dictionary}/item/{key}", dict.handle)

	log.Printf("mock upstream listening on %s", *addr)
	if err := http.ListenAndServe(*addr, mux); err != nil {
		log.Fatal(err)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encode response: %v", err)
	}
}
