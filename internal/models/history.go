package models

import "time"

// HistoryTypeRAG — запись о запуске RAG.
const HistoryTypeRAG = "rag"

// History — запись истории действий пользователя (коллекция histories).
type History struct {
	ID          string     `json:"id" bson:"-"`
	UserID      int64      `json:"user_id" bson:"user_id"`
	Type        string     `json:"type" bson:"type"`
	Title       string     `json:"title" bson:"title"`
	Description string     `json:"description" bson:"description"`
	Content     *RAGResult `json:"content" bson:"content"`
	CreatedAt   time.Time  `json:"created_at" bson:"created_at"`
}
