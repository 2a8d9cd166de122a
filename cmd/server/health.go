package main

import (
	"encoding/json"
	"net/http"
)

func writeHealth(w http.ResponseWriter, status int, overall string, checks map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"status": overall,
		"checks": checks,
	})
}
