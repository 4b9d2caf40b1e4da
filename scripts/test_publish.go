//go:build ignore

// Publishes a leaf_selected event and waits for the worker's report.
//
//	go run scripts/test_publish.go -redis localhost:6379
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/geo-drilldown/internal/domain"
)

func main() {
	redisAddr := flag.String("redis", "localhost:6379", "Redis address for streams")
	flag.Parse()

	client := redis.NewClient(&redis.Options{Addr: *redisAddr})
	defer client.Close()

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}

	sessionID := uuid.NewString()
	event := domain.DrillDownEvent{
		Type:      domain.EventLeafSelected,
		SessionID: sessionID,
		Level:     domain.LevelMunicipality,
		Code:      "MNL-BIN",
		Feature: &domain.GeoFeature{
			Code: "MNL-BIN", Name: "Binondo", ParentCode: "NCR-MNL", Level: domain.LevelMunicipality,
			Metrics: domain.Metrics{Sales: 820_000, Stores: 14, Transactions: 9_400, Growth: 6.1},
		},
		Parent: &domain.GeoFeature{
			Code: "NCR-MNL", Name: "City of Manila", ParentCode: "NCR", Level: domain.LevelProvince,
			Metrics: domain.Metrics{Sales: 5_300_000},
		},
		OccurredAt: time.Now().UTC(),
	}

	data, err := json.Marshal(event)
	if err != nil {
		log.Fatalf("Failed to marshal event: %v", err)
	}

	id, err := client.XAdd(ctx, &redis.XAddArgs{
		Stream: domain.StreamLeafSelected,
		Values: map[string]interface{}{"data": string(data)},
	}).Result()
	if err != nil {
		log.Fatalf("Failed to publish event: %v", err)
	}

	fmt.Printf("Event published\n")
	fmt.Printf("   Stream:     %s\n", domain.StreamLeafSelected)
	fmt.Printf("   Message ID: %s\n", id)
	fmt.Printf("   Session:    %s\n", sessionID)
	fmt.Printf("\nWaiting for report in %s...\n", domain.StreamLeafReport)

	timeout := time.After(30 * time.Second)
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-timeout:
			fmt.Println("Timeout waiting for report")
			return
		case <-ticker.C:
			results, err := client.XRead(ctx, &redis.XReadArgs{
				Streams: []string{domain.StreamLeafReport, "0"},
				Count:   50,
				Block:   -1,
			}).Result()
			if err != nil {
				continue
			}

			for _, stream := range results {
				for _, msg := range stream.Messages {
					raw, ok := msg.Values["data"].(string)
					if !ok {
						continue
					}
					var report domain.LeafReport
					if err := json.Unmarshal([]byte(raw), &report); err != nil || report.SessionID != sessionID {
						continue
					}
					pretty, _ := json.MarshalIndent(report, "", "  ")
					fmt.Printf("\nReport received:\n%s\n", pretty)
					return
				}
			}
		}
	}
}
