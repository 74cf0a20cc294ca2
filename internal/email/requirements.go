package email

import (
	"encoding/json"
	"fmt"
	"os"
)

// Requirements is the campaign specification an email is validated against
type Requirements struct {
	Metadata      map[string]string `json:"metadata"`
	UTMParameters map[string]string `json:"utm_parameters"`
	Country       string            `json:"country"`
	CampaignCode  string            `json:"campaign_code"`
}

// LoadRequirements reads a campaign requirements document from JSON
func LoadRequirements(path string) (*Requirements, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read requirements: %w", err)
	}

	var req Requirements
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to parse requirements: %w", err)
	}
	return &req, nil
}
