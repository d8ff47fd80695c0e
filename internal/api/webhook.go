package api

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"realm-tracker/internal/config"
	"realm-tracker/internal/constants"
	"realm-tracker/internal/domain"

	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"
)

// WebhookClient announces finished ingestions to an external endpoint, such as
// a chat channel bridge. A client without a URL is a no-op.
type WebhookClient struct {
	url    string
	client *fasthttp.Client
	logger zerolog.Logger
}

func NewWebhookClient(cfg *config.Config, logger zerolog.Logger) *WebhookClient {
	return &WebhookClient{
		url: cfg.WebhookURL,
		client: &fasthttp.Client{
			MaxConnsPerHost:     10,
			ReadTimeout:         constants.WebhookTimeout,
			WriteTimeout:        constants.WebhookTimeout,
			MaxIdleConnDuration: 1 * time.Minute,
		},
		logger: logger,
	}
}

func (c *WebhookClient) Enabled() bool {
	return c != nil && c.url != ""
}

type IngestionEvent struct {
	Event               string    `json:"event"`
	SnapshotID          string    `json:"snapshotId"`
	KingdomID           string    `json:"kingdomId"`
	Timestamp           time.Time `json:"timestamp"`
	Filename            string    `json:"filename"`
	PlayersProcessed    int       `json:"playersProcessed"`
	NameChanges         int       `json:"nameChanges"`
	AllianceChanges     int       `json:"allianceChanges"`
	PlayersMarkedAsLeft int       `json:"playersMarkedAsLeft"`
	Content             string    `json:"content"`
}

type WebhookResponse struct {
	StatusCode int
	Body       []byte
}

func (c *WebhookClient) NotifyIngestion(ctx context.Context, summary *domain.IngestionSummary) error {
	if !c.Enabled() {
		return nil
	}

	event := IngestionEvent{
		Event:               "snapshot.ingested",
		SnapshotID:          summary.Snapshot.ID,
		KingdomID:           summary.Snapshot.KingdomID,
		Timestamp:           summary.Snapshot.Timestamp,
		Filename:            summary.Snapshot.Filename,
		PlayersProcessed:    summary.PlayersProcessed,
		NameChanges:         summary.ChangesDetected.NameChanges,
		AllianceChanges:     summary.ChangesDetected.AllianceChanges,
		PlayersMarkedAsLeft: summary.PlayersMarkedAsLeft,
		Content: fmt.Sprintf("Kingdom %s snapshot %s: %d players, %d name changes, %d alliance changes, %d left the realm",
			summary.Snapshot.KingdomID,
			summary.Snapshot.Timestamp.Format("2006-01-02 15:04 UTC"),
			summary.PlayersProcessed,
			summary.ChangesDetected.NameChanges,
			summary.ChangesDetected.AllianceChanges,
			summary.PlayersMarkedAsLeft),
	}

	resp, err := doPost(ctx, c, c.url, event)
	if err != nil {
		c.logger.Warn().Err(err).Str("snapshot_id", summary.Snapshot.ID).Msg("webhook delivery failed")
		return err
	}

	c.logger.Debug().
		Int("status", resp.StatusCode).
		Str("snapshot_id", summary.Snapshot.ID).
		Msg("webhook delivered")
	return nil
}

func doPost[T any](ctx context.Context, client *WebhookClient, url string, payload T) (*WebhookResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode webhook payload: %w", err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBody(body)

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(constants.WebhookTimeout)
	}
	if err := client.client.DoDeadline(req, resp, deadline); err != nil {
		return nil, err
	}

	status := resp.StatusCode()
	if status < fasthttp.StatusOK || status >= fasthttp.StatusMultipleChoices {
		return nil, fmt.Errorf("webhook error: %d", status)
	}

	return &WebhookResponse{
		StatusCode: status,
		Body:       append([]byte(nil), resp.Body()...),
	}, nil
}
