package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pdf-rag-service/internal/retrieval"
	"pdf-rag-service/models"
	"pdf-rag-service/utils"
)

// SetupChatRoutes wires question answering and summarization.
func SetupChatRoutes(router *gin.Engine, retriever *retrieval.Service) {
	router.POST("/chat", func(c *gin.Context) {
		var event models.ChatEvent
		if err := c.ShouldBindJSON(&event); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		answer, err := retriever.Answer(c.Request.Context(), event.UniqueIDs, event.Question)
		if err != nil {
			utils.RespondWithInternalError(c, "Question answering failed", gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"answer": answer})
	})

	router.GET("/summary", func(c *gin.Context) {
		var event models.SummaryEvent
		if err := c.ShouldBindJSON(&event); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		summary, err := retriever.Summarize(c.Request.Context(), event.UniqueIDs)
		if err != nil {
			utils.RespondWithInternalError(c, "Summarization failed", gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"summary": summary})
	})
}
