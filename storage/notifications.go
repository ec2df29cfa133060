package storage

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/bytedance/sonic"
	"github.com/google/uuid"

	"prism-board/domain"
)

// TableClient is the subset of *aztables.Client used by NotificationStore.
type TableClient interface {
	AddEntity(ctx context.Context, entity []byte, options *aztables.AddEntityOptions) (aztables.AddEntityResponse, error)
	UpdateEntity(ctx context.Context, entity []byte, options *aztables.UpdateEntityOptions) (aztables.UpdateEntityResponse, error)
	GetEntity(ctx context.Context, partitionKey, rowKey string, options *aztables.GetEntityOptions) (aztables.GetEntityResponse, error)
	NewListEntitiesPager(options *aztables.ListEntitiesOptions) *runtime.Pager[aztables.ListEntitiesResponse]
}

const edmBoolean = "Edm.Boolean"

type notificationEntity struct {
	PartitionKey string `json:"PartitionKey"`
	RowKey       string `json:"RowKey"`
	Type         string `json:"Type"`
	CardID       string `json:"CardId"`
	BoardID      string `json:"BoardId,omitempty"`
	Message      string `json:"Message"`
	Read         bool   `json:"Read"`
	ReadType     string `json:"Read@odata.type,omitempty"`
	CreatedAt    string `json:"CreatedAt"`
}

type notificationReadUpdate struct {
	PartitionKey string `json:"PartitionKey"`
	RowKey       string `json:"RowKey"`
	Read         bool   `json:"Read"`
	ReadType     string `json:"Read@odata.type"`
}

// NotificationStore keeps per-user notifications in an Azure table partitioned by user.
// Row keys sort newest first.
type NotificationStore struct {
	table TableClient
	now   func() time.Time
}

// NewNotificationStore wraps an Azure table client.
func NewNotificationStore(table TableClient) *NotificationStore {
	return &NotificationStore{table: table, now: time.Now}
}

// NewNotificationTable connects to the notifications table with the retry policy used
// for all table clients.
func NewNotificationTable(connStr, table string) (*aztables.Client, error) {
	opts := aztables.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    3,
				TryTimeout:    time.Minute * 3,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 15,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, &opts)
	if err != nil {
		return nil, err
	}
	return svc.NewClient(table), nil
}

// CreateNotificationTable creates the table behind client. An existing table is
// not an error.
func CreateNotificationTable(ctx context.Context, client *aztables.Client) error {
	_, err := client.CreateTable(ctx, nil)
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) && respErr.ErrorCode == string(aztables.TableAlreadyExists) {
		return nil
	}
	return err
}

// Add stores n for n.UserID. ID and CreatedAt are assigned when empty; the stored
// notification is returned.
func (s *NotificationStore) Add(ctx context.Context, n domain.Notification) (domain.Notification, error) {
	if n.UserID == "" {
		return domain.Notification{}, domain.Invalid("notification without user")
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = s.now()
	}
	n.CreatedAt = n.CreatedAt.UTC()
	if n.ID == "" {
		n.ID = notificationRowKey(n.CreatedAt)
	}
	ent := notificationEntity{
		PartitionKey: n.UserID,
		RowKey:       n.ID,
		Type:         n.Type,
		CardID:       n.CardID,
		BoardID:      n.BoardID,
		Message:      n.Message,
		Read:         n.Read,
		ReadType:     edmBoolean,
		CreatedAt:    n.CreatedAt.Format(time.RFC3339Nano),
	}
	payload, err := sonic.Marshal(ent)
	if err != nil {
		return domain.Notification{}, err
	}
	if _, err := s.table.AddEntity(ctx, payload, nil); err != nil {
		return domain.Notification{}, fmt.Errorf("add notification: %w", err)
	}
	return n, nil
}

// Latest returns up to limit notifications of userID, newest first.
func (s *NotificationStore) Latest(ctx context.Context, userID string, limit int) ([]domain.Notification, error) {
	filter := "PartitionKey eq " + quote(userID)
	top := int32(limit)
	pager := s.table.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter, Top: &top})
	out := []domain.Notification{}
	for pager.More() && len(out) < limit {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list notifications: %w", err)
		}
		for _, raw := range resp.Entities {
			n, err := decodeNotification(raw)
			if err != nil {
				return nil, err
			}
			out = append(out, n)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

// MarkRead flags one notification as read. Unknown ids return domain.ErrNotFound.
func (s *NotificationStore) MarkRead(ctx context.Context, userID, id string) error {
	if _, err := s.table.GetEntity(ctx, userID, id, nil); err != nil {
		if isNotFound(err) {
			return domain.ErrNotFound
		}
		return err
	}
	return s.setRead(ctx, userID, id)
}

// MarkAllRead flags every unread notification of userID as read and returns how many
// were updated.
func (s *NotificationStore) MarkAllRead(ctx context.Context, userID string) (int, error) {
	filter := "PartitionKey eq " + quote(userID) + " and Read eq false"
	sel := "PartitionKey,RowKey"
	pager := s.table.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter, Select: &sel})
	n := 0
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return n, fmt.Errorf("list unread notifications: %w", err)
		}
		for _, raw := range resp.Entities {
			var key struct {
				PartitionKey string `json:"PartitionKey"`
				RowKey       string `json:"RowKey"`
			}
			if err := sonic.Unmarshal(raw, &key); err != nil {
				return n, err
			}
			if err := s.setRead(ctx, key.PartitionKey, key.RowKey); err != nil {
				return n, err
			}
			n++
		}
	}
	return n, nil
}

func (s *NotificationStore) setRead(ctx context.Context, userID, id string) error {
	payload, err := sonic.Marshal(notificationReadUpdate{PartitionKey: userID, RowKey: id, Read: true, ReadType: edmBoolean})
	if err != nil {
		return err
	}
	et := azcore.ETagAny
	_, err = s.table.UpdateEntity(ctx, payload, &aztables.UpdateEntityOptions{IfMatch: &et, UpdateMode: aztables.UpdateModeMerge})
	if isNotFound(err) {
		return domain.ErrNotFound
	}
	return err
}

func decodeNotification(raw []byte) (domain.Notification, error) {
	var ent notificationEntity
	if err := sonic.Unmarshal(raw, &ent); err != nil {
		return domain.Notification{}, err
	}
	created, _ := time.Parse(time.RFC3339Nano, ent.CreatedAt)
	return domain.Notification{
		ID:        ent.RowKey,
		UserID:    ent.PartitionKey,
		Type:      ent.Type,
		CardID:    ent.CardID,
		BoardID:   ent.BoardID,
		Message:   ent.Message,
		Read:      ent.Read,
		CreatedAt: created,
	}, nil
}

// notificationRowKey orders rows newest first: the inverted timestamp is zero padded
// and a random suffix keeps keys unique.
func notificationRowKey(t time.Time) string {
	return fmt.Sprintf("%019d-%s", math.MaxInt64-t.UnixNano(), uuid.NewString()[:8])
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func isNotFound(err error) bool {
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && respErr.StatusCode == 404
}
