package chorus

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
)

// VoiceConfig is a stored assistant configuration.
type VoiceConfig struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	SystemPrompt string `json:"system_prompt,omitempty"`
	Voice        string `json:"voice,omitempty"`
	Language     string `json:"language,omitempty"`
	CreatedAt    int64  `json:"created_at,omitempty"`
	UpdatedAt    int64  `json:"updated_at,omitempty"`
}

// ConfigPage is one page of stored configurations.
type ConfigPage struct {
	PageNumber int           `json:"page_number"`
	PageSize   int           `json:"page_size"`
	TotalPages int           `json:"total_pages"`
	Configs    []VoiceConfig `json:"configs"`
}

// ConfigRequest carries the mutable fields for create and update.
type ConfigRequest struct {
	Name         string `json:"name"`
	SystemPrompt string `json:"system_prompt,omitempty"`
	Voice        string `json:"voice,omitempty"`
	Language     string `json:"language,omitempty"`
}

// ListConfigs fetches one page of configurations.
func (c *Client) ListConfigs(ctx context.Context, page, size int) (*ConfigPage, error) {
	result, err := getJSON[ConfigPage](ctx, c.api, "/v1/configs",
		WithQuery("page_number", strconv.Itoa(page)),
		WithQuery("page_size", strconv.Itoa(size)))
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// GetConfig fetches one configuration by id.
func (c *Client) GetConfig(ctx context.Context, id string) (*VoiceConfig, error) {
	if id == "" {
		return nil, NewConfigError("config id cannot be empty")
	}
	result, err := getJSON[VoiceConfig](ctx, c.api, "/v1/configs/"+id)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// CreateConfig creates a configuration.
func (c *Client) CreateConfig(ctx context.Context, req ConfigRequest) (*VoiceConfig, error) {
	if req.Name == "" {
		return nil, NewConfigError("config name cannot be empty")
	}
	result, err := postJSON[VoiceConfig](ctx, c.api, "/v1/configs", req)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// UpdateConfig replaces a configuration's mutable fields.
func (c *Client) UpdateConfig(ctx context.Context, id string, req ConfigRequest) (*VoiceConfig, error) {
	if id == "" {
		return nil, NewConfigError("config id cannot be empty")
	}
	result, err := putJSON[VoiceConfig](ctx, c.api, "/v1/configs/"+id, req)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// DeleteConfig deletes a configuration.
func (c *Client) DeleteConfig(ctx context.Context, id string) error {
	if id == "" {
		return NewConfigError("config id cannot be empty")
	}
	_, err := c.api.Do(ctx, http.MethodDelete, fmt.Sprintf("/v1/configs/%s", id), nil)
	return err
}
