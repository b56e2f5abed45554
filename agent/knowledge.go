package agent

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/fabfab/support-agent/llm"
	"github.com/fabfab/support-agent/retrieval"
)

const defaultKnowledgeTopK = 4

const noKnowledgeMessage = "I'm not able to find information about that in our current support documents. Please contact customer support for further assistance."

const knowledgeUnavailableMessage = "I'm not able to retrieve information from our support documents at the moment. Please try again later or contact customer support."

// Retriever returns the top-k chunks for a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int) ([]retrieval.Result, error)
}

// KnowledgeAgent answers questions grounded in the retrieval index. The
// completion is instructed to answer only from the supplied context;
// that contract is not independently verified.
type KnowledgeAgent struct {
	llm       llm.Client
	retriever Retriever
	topK      int
	logger    *zap.Logger
}

func NewKnowledgeAgent(client llm.Client, retriever Retriever, topK int, logger *zap.Logger) *KnowledgeAgent {
	if logger == nil {
		logger = zap.NewNop()
	}
	if topK <= 0 {
		topK = defaultKnowledgeTopK
	}

	return &KnowledgeAgent{
		llm:       client,
		retriever: retriever,
		topK:      topK,
		logger:    logger,
	}
}

const knowledgeSystemPrompt = `You are a banking customer support assistant powered by a knowledge base.
You will be given several excerpts from official support documents, followed by a customer question.
Your job is to answer the question using ONLY this provided context.
If the answer is not in the context, say that you do not know and suggest contacting customer support.
Be concise, accurate, and professional.`

// HandleQuery retrieves context for the message and asks the completion
// capability to answer from it. Every failure path resolves to a fixed
// message; the flow never returns an error to the orchestrator.
func (a *KnowledgeAgent) HandleQuery(ctx context.Context, message string) (string, error) {
	chunks, err := a.retriever.Retrieve(ctx, message, a.topK)
	if err != nil {
		a.logger.Warn("knowledge retrieval failed", zap.Error(err))
		return knowledgeUnavailableMessage, nil
	}

	if len(chunks) == 0 {
		return noKnowledgeMessage, nil
	}

	blocks := make([]string, len(chunks))
	for i, chunk := range chunks {
		blocks[i] = fmt.Sprintf("[%s] (score=%.3f)\n%s", chunk.Title, chunk.Score, chunk.Content)
	}

	user := fmt.Sprintf(`Here are the most relevant support document excerpts:

%s

Customer question:
%s

Based ONLY on the support document excerpts above, answer the question. If the answer is not present, say you do not know.`,
		strings.Join(blocks, "\n\n"), message)

	content, err := a.llm.Complete(ctx, knowledgeSystemPrompt, user, 0.2)
	if err != nil {
		a.logger.Warn("knowledge completion failed", zap.Error(err))
		return knowledgeUnavailableMessage, nil
	}

	if content = strings.TrimSpace(content); content == "" {
		return noKnowledgeMessage, nil
	}
	return content, nil
}
