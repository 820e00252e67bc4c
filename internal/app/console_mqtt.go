// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/enviro_logger/internal/config"
	"github.com/relabs-tech/enviro_logger/internal/env"
)

// subscribeBatches connects with clientID and calls fn for every batch
// published on the sample topic.
func subscribeBatches(cfg *config.Config, clientID, who string, fn func(env.Batch)) (mqtt.Client, error) {
	if cfg.MQTTBroker == "" {
		return nil, fmt.Errorf("MQTT_BROKER is not set")
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(clientID)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	log.Printf("%s: connected to MQTT broker at %s", who, cfg.MQTTBroker)

	token := client.Subscribe(cfg.TopicSample, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var b env.Batch
		if err := json.Unmarshal(msg.Payload(), &b); err != nil {
			log.Printf("%s: batch unmarshal error: %v", who, err)
			return
		}
		fn(b)
	})
	token.Wait()
	if token.Error() != nil {
		client.Disconnect(250)
		return nil, token.Error()
	}
	log.Printf("%s: subscribed to %s", who, cfg.TopicSample)
	return client, nil
}

// RunConsoleMQTT prints every batch the producer mirrors until ctx ends.
func RunConsoleMQTT(ctx context.Context, cfg *config.Config) error {
	client, err := subscribeBatches(cfg, cfg.MQTTClientIDConsole, "console", func(b env.Batch) {
		fmt.Print(formatBatch(b))
	})
	if err != nil {
		return err
	}

	<-ctx.Done()
	log.Println("console: shutting down")
	client.Disconnect(250)
	return nil
}

// formatBatch renders a batch as one header line plus one line per metric.
func formatBatch(b env.Batch) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[CYCLE %d] %s\n", b.Cycle, b.Timestamp.Local().Format(time.DateTime))
	for _, metric := range b.Metrics() {
		v, _ := b.Value(metric)
		fmt.Fprintf(&sb, "  %-16s %10.2f %s\n", metric, v, env.Unit(metric))
	}
	return sb.String()
}
