package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"appforge/internal/ledger"
)

// Notifier delivers completion payloads to the evaluation server. One POST,
// one attempt; the call site decides what a failure means (it logs and moves
// on — redelivery of the original request is the only retry in the system).
type Notifier struct {
	httpClient *http.Client
}

func NewNotifier(httpClient *http.Client) *Notifier {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Notifier{httpClient: httpClient}
}

func (n *Notifier) Notify(ctx context.Context, url string, rec ledger.Record) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	res, err := n.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, res.Body)
		_ = res.Body.Close()
	}()
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return fmt.Errorf("evaluation server answered status %d", res.StatusCode)
	}
	return nil
}
