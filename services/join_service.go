// file: services/join_service.go
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"

	"shareform/logger"
	"shareform/models"
)

// JoinForm does what a browser does before it opens the relay socket: it
// loads the form page to start a visitor session, then fetches the schema.
// The returned header carries the session cookie for the WebSocket handshake.
func JoinForm(ctx context.Context, client *http.Client, appURL string) (http.Header, *models.FormSchema, error) {
	base, err := url.Parse(strings.TrimRight(appURL, "/"))
	if err != nil {
		return nil, nil, fmt.Errorf("application url: %w", err)
	}
	if client == nil {
		client = &http.Client{}
	}
	if client.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, nil, err
		}
		c := *client
		c.Jar = jar
		client = &c
	}

	if _, err := get(ctx, client, base.String()+"/"); err != nil {
		return nil, nil, err
	}

	body, err := get(ctx, client, base.String()+"/schema")
	if err != nil {
		return nil, nil, err
	}
	var schema models.FormSchema
	if err := json.Unmarshal(body, &schema); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", models.ErrInvalidSchema, err)
	}
	if err := schema.Validate(); err != nil {
		return nil, nil, err
	}

	header := http.Header{}
	var parts []string
	for _, c := range client.Jar.Cookies(base) {
		parts = append(parts, c.Name+"="+c.Value)
	}
	if len(parts) > 0 {
		header.Set("Cookie", strings.Join(parts, "; "))
	}
	logger.Info.Printf("[JoinForm] joined %s with %d view-model(s)", base, len(schema.ViewModels))
	return header, &schema, nil
}

func get(ctx context.Context, client *http.Client, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", target, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", target, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: status %d", target, resp.StatusCode)
	}
	return body, nil
}
