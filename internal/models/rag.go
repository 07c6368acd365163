package models

import "encoding/json"

// Категории мер снижения риска (иерархия мер защиты).
const (
	CategoryDesign         = "design"
	CategoryEngineering    = "engineering"
	CategoryAdministrative = "administrative"
	CategoryPPE            = "ppe"
)

// LLMGenerated — имя "файла знаний" для пунктов, придуманных моделью.
const LLMGenerated = "generated by LLM"

// RiskItem — одна опасность и мера по её снижению.
type RiskItem struct {
	Hazard         string `json:"hazard" bson:"hazard"`
	RiskMitigation string `json:"risk_mitigation" bson:"risk_mitigation"`
	Category       string `json:"category" bson:"category"`
	KnowledgeFile  string `json:"knowledge_file" bson:"knowledge_file"`
}

// RAGDocument — найденный в индексе прошлый случай.
type RAGDocument struct {
	Hazard         string  `json:"hazard"`
	RiskMitigation string  `json:"risk_mitigation"`
	FileName       string  `json:"file_name"`
	Score          float64 `json:"score"`
}

// RAGResult — ответ RAG. Возможны три формы:
//   - {"rags": [...], "llms": [...]} — разобранный ответ модели;
//   - {"message": "...", "results": []} — похожих случаев не найдено;
//   - {"raw_response": "..."} — ответ модели не удалось разобрать.
type RAGResult struct {
	RAGs        []RiskItem `bson:"rags,omitempty"`
	LLMs        []RiskItem `bson:"llms,omitempty"`
	Message     string     `bson:"message,omitempty"`
	RawResponse string     `bson:"raw_response,omitempty"`
}

// MarshalJSON отдаёт одну из трёх форм ответа.
func (r RAGResult) MarshalJSON() ([]byte, error) {
	switch {
	case r.RawResponse != "":
		return json.Marshal(struct {
			RawResponse string `json:"raw_response"`
		}{r.RawResponse})
	case r.Message != "":
		return json.Marshal(struct {
			Message string     `json:"message"`
			Results []RiskItem `json:"results"`
		}{r.Message, []RiskItem{}})
	default:
		rags, llms := r.RAGs, r.LLMs
		if rags == nil {
			rags = []RiskItem{}
		}
		if llms == nil {
			llms = []RiskItem{}
		}
		return json.Marshal(struct {
			RAGs []RiskItem `json:"rags"`
			LLMs []RiskItem `json:"llms"`
		}{rags, llms})
	}
}
