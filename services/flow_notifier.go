package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/yeremiapane/shortage-app/models"
	"github.com/yeremiapane/shortage-app/utils"
)

// FlowNotifierConfig holds Power Automate flow endpoints
type FlowNotifierConfig struct {
	NotificationURL string // endpoint notifikasi antar role
	SaleDecisionURL string // endpoint trigger flow keputusan sale lama
}

// FlowNotifier mengirim NotificationIntent ke Power Automate flow via HTTP.
// Satu intent = satu POST; payload mengikuti kontrak flow (field PascalCase).
type FlowNotifier struct {
	config     *FlowNotifierConfig
	httpClient *http.Client
}

func NewFlowNotifier() *FlowNotifier {
	cfg := &FlowNotifierConfig{
		NotificationURL: os.Getenv("NOTIFICATION_FLOW_URL"),
		SaleDecisionURL: os.Getenv("SALE_DECISION_FLOW_URL"),
	}
	if cfg.SaleDecisionURL == "" {
		cfg.SaleDecisionURL = cfg.NotificationURL
	}
	return &FlowNotifier{
		config: cfg,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// NewFlowNotifierWithConfig dipakai test untuk mengarahkan ke server lokal.
func NewFlowNotifierWithConfig(cfg *FlowNotifierConfig) *FlowNotifier {
	return &FlowNotifier{
		config:     cfg,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// flowPayload adalah body POST yang diharapkan flow penerima.
type flowPayload struct {
	Type      string          `json:"Type"`
	SodID     string          `json:"SodId"`
	SodName   string          `json:"SodName"`
	Sku       string          `json:"Sku"`
	Message   string          `json:"Message"`
	Details   json.RawMessage `json:"Details,omitempty"`
	Timestamp string          `json:"Timestamp"`
}

func (fn *FlowNotifier) endpointFor(intentType string) string {
	if intentType == models.NotifyPartialShipment {
		return fn.config.SaleDecisionURL
	}
	return fn.config.NotificationURL
}

func (fn *FlowNotifier) Deliver(intent models.NotificationIntent) error {
	url := fn.endpointFor(intent.Type)
	if url == "" {
		// Tanpa endpoint notifikasi jadi no-op; cukup dicatat sekali per intent.
		utils.InfoLogger.Printf("notification flow url not configured, skipping %s intent %s", intent.Type, intent.ID)
		return nil
	}

	payload := flowPayload{
		Type:      intent.Type,
		SodID:     intent.SodID,
		SodName:   intent.SodName,
		Sku:       intent.Sku,
		Message:   intent.Message,
		Timestamp: intent.Timestamp.Format(time.RFC3339),
	}
	if intent.Details != "" && json.Valid([]byte(intent.Details)) {
		payload.Details = json.RawMessage(intent.Details)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal flow payload: %v", err)
	}

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to create flow request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := fn.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach notification flow: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("notification flow returned status %d: %s", resp.StatusCode, string(raw))
	}
	return nil
}
