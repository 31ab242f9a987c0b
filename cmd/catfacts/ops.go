package main

import (
	"context"
	"fmt"

	"github.com/catfactsnode/catfacts/internal/domain"
)

type factPayload struct {
	ID        uint   `json:"id"`
	Text      string `json:"text"`
	Author    string `json:"author"`
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

func doFactsList(ctx context.Context, cfg cliConfig, status string, out *[]factPayload) error {
	client := newAPIClient(cfg)
	var resp struct {
		Facts []factPayload `json:"facts"`
	}
	if err := client.request(ctx, "GET", "/api/facts?status="+status, nil, &resp); err != nil {
		return err
	}
	*out = resp.Facts
	return nil
}

func doFactsRandom(ctx context.Context, cfg cliConfig) (string, error) {
	client := newAPIClient(cfg)
	var resp struct {
		Data []string `json:"data"`
	}
	if err := client.request(ctx, "GET", "/fact", nil, &resp); err != nil {
		return "", err
	}
	if len(resp.Data) == 0 {
		return "", fmt.Errorf("empty response from /fact")
	}
	return resp.Data[0], nil
}

func doFactsApprove(ctx context.Context, cfg cliConfig, id uint, out *map[string]any) error {
	return newAPIClient(cfg).request(ctx, "POST", fmt.Sprintf("/api/facts/%d/approve", id), nil, out)
}

func doFactsDeny(ctx context.Context, cfg cliConfig, id uint, out *map[string]any) error {
	return newAPIClient(cfg).request(ctx, "POST", fmt.Sprintf("/api/facts/%d/deny", id), nil, out)
}

func doStats(ctx context.Context, cfg cliConfig, out *domain.StatusCounts) error {
	return newAPIClient(cfg).request(ctx, "GET", "/api/stats", nil, out)
}
