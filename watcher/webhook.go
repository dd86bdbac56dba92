package watcher

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

// Pusher delivers one snapshot payload to the remote sheet endpoint.
type Pusher interface {
	Push(payload []byte, timeout time.Duration) error
}

// WebhookClient posts JSON snapshots to a webhook URL.
type WebhookClient struct {
	url    string
	client *http.Client
}

func NewWebhookClient(url string) *WebhookClient {
	return &WebhookClient{url: url, client: &http.Client{}}
}

func (c *WebhookClient) Push(payload []byte, timeout time.Duration) error {
	ctx := context.Background()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "build webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "post webhook")
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return eris.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// Snapshot row shapes mirror the remote sheet's upsert schema.
type zonePayloadRow struct {
	Character string `json:"character"`
	Zone      string `json:"zone"`
	UTC       string `json:"utc"`
	Local     string `json:"local"`
	Source    string `json:"source"`
}

type standingPayloadRow struct {
	Character string `json:"character"`
	Standing  string `json:"standing"`
	Display   string `json:"standingDisplay"`
	Score     int    `json:"score"`
	Entity    string `json:"entity"`
	UTC       string `json:"utc"`
	Local     string `json:"local"`
}

type inventoryPayloadRow struct {
	Character string  `json:"character"`
	File      string  `json:"file"`
	Modified  string  `json:"modified"`
	RaidKit   RaidKit `json:"raidKit"`
}

type inventoryDetailRow struct {
	Character string          `json:"character"`
	File      string          `json:"file"`
	Modified  string          `json:"modified"`
	Items     []InventoryItem `json:"items"`
}

type snapshotPayload struct {
	Secret  string `json:"secret,omitempty"`
	Upserts struct {
		Zones            []zonePayloadRow      `json:"zones"`
		Standings        []standingPayloadRow  `json:"factions"`
		Inventory        []inventoryPayloadRow `json:"inventory"`
		InventoryDetails []inventoryDetailRow  `json:"inventoryDetails"`
	} `json:"upserts"`
}

// BuildSnapshotPayload renders the current state as the webhook's upsert
// payload. Per-source zone rows are preferred so same-name characters on
// different servers do not collide.
func BuildSnapshotPayload(st *State, secret string) ([]byte, error) {
	p := snapshotPayload{Secret: secret}
	p.Upserts.Zones = []zonePayloadRow{}
	p.Upserts.Standings = []standingPayloadRow{}
	p.Upserts.Inventory = []inventoryPayloadRow{}
	p.Upserts.InventoryDetails = []inventoryDetailRow{}

	for _, path := range sortedKeys(st.ZonesBySource) {
		zf := st.ZonesBySource[path]
		p.Upserts.Zones = append(p.Upserts.Zones, zonePayloadRow{
			Character: zf.Character,
			Zone:      zf.Zone,
			UTC:       zf.DetectedUTC.Format(time.RFC3339),
			Local:     zf.DetectedLocal,
			Source:    zf.SourcePath,
		})
	}
	for _, char := range sortedKeys(st.Standings) {
		rec := st.Standings[char]
		p.Upserts.Standings = append(p.Upserts.Standings, standingPayloadRow{
			Character: char,
			Standing:  rec.Standing,
			Display:   rec.Display,
			Score:     rec.Score,
			Entity:    rec.Entity,
			UTC:       rec.DetectedUTC.Format(time.RFC3339),
			Local:     rec.DetectedLocal,
		})
	}
	for _, char := range sortedKeys(st.Inventory) {
		inv := st.Inventory[char]
		mod := inv.FileModified.UTC().Format(time.RFC3339)
		p.Upserts.Inventory = append(p.Upserts.Inventory, inventoryPayloadRow{
			Character: char,
			File:      inv.FilePath,
			Modified:  mod,
			RaidKit:   SummarizeRaidKit(inv.Items),
		})
		p.Upserts.InventoryDetails = append(p.Upserts.InventoryDetails, inventoryDetailRow{
			Character: char,
			File:      inv.FilePath,
			Modified:  mod,
			Items:     inv.Items,
		})
	}

	b, err := json.Marshal(p)
	if err != nil {
		return nil, eris.Wrap(err, "marshal snapshot payload")
	}
	return b, nil
}
