package routes

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"pdf-rag-service/internal/ingest"
	"pdf-rag-service/internal/retrieval"
	"pdf-rag-service/internal/storage"
	"pdf-rag-service/internal/vectorindex"
	"pdf-rag-service/models"
	"pdf-rag-service/utils"
)

// SetupDocumentRoutes wires the single-file ingest, delete and listing
// endpoints.
func SetupDocumentRoutes(router *gin.Engine, ingester *ingest.Service, index *vectorindex.Index, retriever *retrieval.Service) {
	// Ingest one file synchronously
	router.PUT("/pdf_file", func(c *gin.Context) {
		var event models.FileEvent
		if err := c.ShouldBindJSON(&event); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		pages, err := ingester.IngestFile(c.Request.Context(), event.UniqueID, event.FilePath, nil)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				utils.RespondWithNotFound(c, "Source file not found: "+event.FilePath)
				return
			}
			utils.RespondWithInternalError(c, "Ingestion failed", gin.H{
				"error":         err.Error(),
				"pages_indexed": pages,
			})
			return
		}

		c.JSON(http.StatusOK, models.IngestResult{PagesIndexed: pages})
	})

	// Delete every page record of one file
	router.DELETE("/pdf_file", func(c *gin.Context) {
		var event models.FileEvent
		if err := c.ShouldBindJSON(&event); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		deleted, err := index.DeleteByFile(c.Request.Context(), event.FilePath)
		if err != nil {
			// Nothing indexed at all behaves like deleting an unknown path.
			if errors.Is(err, vectorindex.ErrIndexNotFound) {
				c.JSON(http.StatusOK, models.DeleteResult{Deleted: 0})
				return
			}
			utils.RespondWithInternalError(c, "Deletion failed", gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, models.DeleteResult{Deleted: deleted})
	})

	// List indexed documents for a set of identifiers
	router.POST("/pdf_file", func(c *gin.Context) {
		var event models.ListDocsEvent
		if err := c.ShouldBindJSON(&event); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		listing, err := retriever.ListDocuments(c.Request.Context(), event.UniqueIDs)
		if err != nil {
			if errors.Is(err, vectorindex.ErrIndexNotFound) {
				c.JSON(http.StatusOK, vectorindex.DocListing{Count: 0, Paths: []string{}})
				return
			}
			utils.RespondWithInternalError(c, "Listing failed", gin.H{"error": err.Error()})
			return
		}
		if listing.Paths == nil {
			listing.Paths = []string{}
		}

		c.JSON(http.StatusOK, listing)
	})
}
