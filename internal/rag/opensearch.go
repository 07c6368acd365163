package rag

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/opensearch-project/opensearch-go/v2"

	"github.com/pribylovaa/risk-assistant/internal/config"
	"github.com/pribylovaa/risk-assistant/internal/models"
)

// OpenSearchSearcher — kNN-поиск по индексу отчётов об опасностях.
// Документ индекса: hazard, risk_mitigation, file_name и вектор в VectorField.
type OpenSearchSearcher struct {
	client *opensearch.Client
	index  string
	field  string
}

// NewOpenSearchSearcher создаёт клиент OpenSearch по конфигурации RAG.
func NewOpenSearchSearcher(cfg config.RAGConfig) (*OpenSearchSearcher, error) {
	const op = "rag.NewOpenSearchSearcher"

	client, err := opensearch.NewClient(opensearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	field := cfg.VectorField
	if field == "" {
		field = "contentVector"
	}

	return &OpenSearchSearcher{client: client, index: cfg.Index, field: field}, nil
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			Score  float64 `json:"_score"`
			Source struct {
				Hazard         string `json:"hazard"`
				RiskMitigation string `json:"risk_mitigation"`
				FileName       string `json:"file_name"`
			} `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// Search возвращает до k документов, ближайших к vector.
func (s *OpenSearchSearcher) Search(ctx context.Context, vector []float64, k int) ([]models.RAGDocument, error) {
	const op = "rag.OpenSearchSearcher.Search"

	body, err := json.Marshal(map[string]any{
		"size":    k,
		"_source": []string{"hazard", "risk_mitigation", "file_name"},
		"query": map[string]any{
			"knn": map[string]any{
				s.field: map[string]any{"vector": vector, "k": k},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	res, err := s.client.Search(
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(s.index),
		s.client.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return nil, fmt.Errorf("%s: status %d: %s", op, res.StatusCode, bytes.TrimSpace(msg))
	}

	var sr searchResponse
	if err := json.NewDecoder(res.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("%s: decode: %w", op, err)
	}

	docs := make([]models.RAGDocument, 0, len(sr.Hits.Hits))
	for _, h := range sr.Hits.Hits {
		docs = append(docs, models.RAGDocument{
			Hazard:         h.Source.Hazard,
			RiskMitigation: h.Source.RiskMitigation,
			FileName:       h.Source.FileName,
			Score:          h.Score,
		})
	}

	return docs, nil
}

// Ping проверяет доступность кластера (для readiness).
func (s *OpenSearchSearcher) Ping(ctx context.Context) error {
	res, err := s.client.Info(s.client.Info.WithContext(ctx))
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("opensearch info: status %d", res.StatusCode)
	}

	return nil
}
