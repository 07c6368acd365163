package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/pribylovaa/risk-assistant/internal/models"
	"github.com/pribylovaa/risk-assistant/internal/storage"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// historyDoc — документ коллекции histories.
type historyDoc struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	UserID      int64              `bson:"user_id"`
	Type        string             `bson:"type"`
	Title       string             `bson:"title"`
	Description string             `bson:"description"`
	Content     *models.RAGResult  `bson:"content,omitempty"`
	CreatedAt   time.Time          `bson:"created_at"`
}

func (d historyDoc) toModel() models.History {
	return models.History{
		ID:          d.ID.Hex(),
		UserID:      d.UserID,
		Type:        d.Type,
		Title:       d.Title,
		Description: d.Description,
		Content:     d.Content,
		CreatedAt:   d.CreatedAt,
	}
}

// SaveHistory сохраняет запись и заполняет h.ID (и CreatedAt, если пусто).
func (m *Mongo) SaveHistory(ctx context.Context, h *models.History) error {
	const op = "storage.mongo.SaveHistory"

	if h.CreatedAt.IsZero() {
		h.CreatedAt = time.Now().UTC()
	}

	doc := historyDoc{
		UserID:      h.UserID,
		Type:        h.Type,
		Title:       h.Title,
		Description: h.Description,
		Content:     h.Content,
		CreatedAt:   h.CreatedAt,
	}

	res, err := m.histories.InsertOne(ctx, doc)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return fmt.Errorf("%s: unexpected inserted id %T", op, res.InsertedID)
	}
	h.ID = oid.Hex()

	return nil
}

// ListHistory возвращает записи пользователя, новые первыми.
// limit <= 0 — значение по умолчанию; сверху ограничен maxHistoryLimit.
func (m *Mongo) ListHistory(ctx context.Context, userID int64, limit int) ([]models.History, error) {
	const op = "storage.mongo.ListHistory"

	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	findOpts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit))

	cur, err := m.histories.Find(ctx, bson.D{{Key: "user_id", Value: userID}}, findOpts)
	if err != nil {
		return nil, fmt.Errorf("%s: find: %w", op, err)
	}
	defer cur.Close(ctx)

	out := make([]models.History, 0, limit)
	for cur.Next(ctx) {
		var d historyDoc
		if err := cur.Decode(&d); err != nil {
			return nil, fmt.Errorf("%s: decode: %w", op, err)
		}
		out = append(out, d.toModel())
	}

	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("%s: cursor: %w", op, err)
	}

	return out, nil
}

var _ storage.HistoryStorage = (*Mongo)(nil)
