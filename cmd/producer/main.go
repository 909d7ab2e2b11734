// Command producer seeds the store with demo traffic. It creates a user
// over the HTTP API, publishes product create messages, waits for the
// consumer to land them, then publishes orders referencing the results.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

func main() {
	var (
		products = flag.Int("products", 5, "number of product create messages")
		orders   = flag.Int("orders", 10, "number of order create messages")
		wait     = flag.Duration("wait", 30*time.Second, "how long to wait for products to be consumed")
	)
	flag.Parse()

	brokers := []string{"localhost:9092"}
	if env := os.Getenv("KAFKA_BROKERS"); env != "" {
		brokers = strings.Split(env, ",")
	}
	api := envDefault("API_ADDR", "http://localhost:8080")
	orderTopic := envDefault("KAFKA_ORDER_TOPIC", "order")
	productTopic := envDefault("KAFKA_PRODUCT_TOPIC", "product")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	userID, err := createUser(ctx, api)
	if err != nil {
		log.Fatalf("create user: %v", err)
	}
	log.Printf("user created: %s", userID)

	if err := publish(ctx, brokers, productTopic, productMessages(*products)); err != nil {
		log.Fatalf("publish products: %v", err)
	}
	log.Printf("published %d product messages to %q", *products, productTopic)

	ids, err := awaitProducts(ctx, api, *products, *wait)
	if err != nil {
		log.Fatalf("await products: %v", err)
	}
	log.Printf("%d products visible over the API", len(ids))

	if err := publish(ctx, brokers, orderTopic, orderMessages(*orders, userID, ids)); err != nil {
		log.Fatalf("publish orders: %v", err)
	}
	log.Printf("published %d order messages to %q", *orders, orderTopic)
}

func publish(ctx context.Context, brokers []string, topic string, payloads []any) error {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
		BatchSize:    100,
	}
	defer writer.Close()

	msgs := make([]kafka.Message, 0, len(payloads))
	for _, p := range payloads {
		data, err := json.Marshal(p)
		if err != nil {
			return err
		}
		msgs = append(msgs, kafka.Message{Value: data, Time: time.Now()})
	}
	return writer.WriteMessages(ctx, msgs...)
}

func productMessages(n int) []any {
	out := make([]any, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, map[string]any{
			"operation":      "create",
			"name":           fmt.Sprintf("demo product %d-%d", time.Now().Unix(), i),
			"description":    "seeded by cmd/producer",
			"price":          float64(rand.Intn(9500)+500) / 100,
			"stock_quantity": rand.Intn(90) + 10,
		})
	}
	return out
}

func orderMessages(n int, userID string, productIDs []string) []any {
	out := make([]any, 0, n)
	for i := 0; i < n; i++ {
		items := make([]map[string]any, 0, 2)
		for _, id := range pick(productIDs, rand.Intn(2)+1) {
			items = append(items, map[string]any{
				"product_id": id,
				"quantity":   rand.Intn(3) + 1,
			})
		}
		out = append(out, map[string]any{
			"operation":           "create",
			"user_id":             userID,
			"delivery_address_id": fmt.Sprintf("addr-%d", rand.Intn(5)+1),
			"items":               items,
		})
	}
	return out
}

func pick(ids []string, n int) []string {
	if n > len(ids) {
		n = len(ids)
	}
	perm := rand.Perm(len(ids))
	out := make([]string, 0, n)
	for _, idx := range perm[:n] {
		out = append(out, ids[idx])
	}
	return out
}

func createUser(ctx context.Context, api string) (string, error) {
	body, err := json.Marshal(map[string]any{
		"username": fmt.Sprintf("demo-%d", time.Now().UnixNano()),
		"email":    fmt.Sprintf("demo-%d@example.com", time.Now().UnixNano()),
	})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, api+"/users", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("unexpected status %s", resp.Status)
	}
	var user struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return "", err
	}
	return user.ID, nil
}

// awaitProducts polls the read API until the consumer has landed at least
// want products or the wait budget runs out. A partial result is still
// usable for seeding orders.
func awaitProducts(ctx context.Context, api string, want int, wait time.Duration) ([]string, error) {
	deadline := time.Now().Add(wait)
	for {
		ids, err := listProducts(ctx, api)
		if err == nil && len(ids) >= want {
			return ids, nil
		}
		if time.Now().After(deadline) {
			if err != nil {
				return nil, err
			}
			if len(ids) == 0 {
				return nil, fmt.Errorf("no products appeared within %v", wait)
			}
			return ids, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Second):
		}
	}
}

func listProducts(ctx context.Context, api string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, api+"/products?count=100", nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	var products []struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&products); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(products))
	for _, p := range products {
		ids = append(ids, p.ID)
	}
	return ids, nil
}

func envDefault(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}
