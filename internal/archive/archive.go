// Optional archive of OCPP frames to Azure Table storage, partitioned by
// charge point identity.
package archive

import (
	"context"
	"encoding/json"
	"fmt"

	"ev/ocpp/gateway/internal/helpers"
	log "ev/ocpp/gateway/internal/logging"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
)

const tableName = "ocppframes"

type FrameEntity struct {
	PartitionKey string `json:"PartitionKey"`
	RowKey       string `json:"RowKey"`

	Direction string `json:"Direction"`
	Action    string `json:"Action,omitempty"`
	Frame     string `json:"Frame"`
	QueuedAt  string `json:"QueuedAt"`
}

type FrameArchiver struct {
	client *aztables.Client
}

func NewFrameArchiver(accountName string, accountKey string) (*FrameArchiver, error) {
	cred, err := aztables.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, err
	}
	serviceURL := fmt.Sprintf("https://%s.table.core.windows.net/%s", accountName, tableName)

	client, err := aztables.NewClientWithSharedKey(serviceURL, cred, nil)
	if err != nil {
		return nil, err
	}
	return &FrameArchiver{client: client}, nil
}

// EnsureTable creates the frames table; Storage Table Data Contributor role
// is needed on the account.
func (a *FrameArchiver) EnsureTable(ctx context.Context) error {
	_, err := a.client.CreateTable(ctx, &aztables.CreateTableOptions{})
	return err
}

// Store archives one frame. Failures are the caller's to log; archival must
// never block the OCPP reply path.
func (a *FrameArchiver) Store(ctx context.Context, identity string, direction string, action string, frame []byte) error {
	entity := FrameEntity{
		PartitionKey: identity,
		RowKey:       helpers.GenerateDateNowMs() + "_" + direction,
		Direction:    direction,
		Action:       action,
		Frame:        string(frame),
		QueuedAt:     helpers.GenerateDateNowMs(),
	}

	marshalled, err := json.Marshal(entity)
	if err != nil {
		return err
	}

	log.Logger.Debugf("archive body: %s", marshalled)
	_, err = a.client.AddEntity(ctx, marshalled, nil)
	return err
}

// ListRecent returns up to 15 archived frames for an identity; diagnostics
// only.
func (a *FrameArchiver) ListRecent(ctx context.Context, identity string) ([]FrameEntity, error) {
	filter := fmt.Sprintf("PartitionKey eq '%v'", identity)
	options := &aztables.ListEntitiesOptions{
		Filter: &filter,
		Top:    to.Ptr(int32(15)),
	}

	var results []FrameEntity
	pager := a.client.NewListEntitiesPager(options)
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, raw := range resp.Entities {
			var entity FrameEntity
			if err := json.Unmarshal(raw, &entity); err != nil {
				return nil, err
			}
			results = append(results, entity)
		}
	}
	return results, nil
}
