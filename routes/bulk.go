package routes

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"

	"pdf-rag-service/internal/logger"
	"pdf-rag-service/internal/queue"
	"pdf-rag-service/models"
	"pdf-rag-service/utils"
)

// SetupBulkRoutes wires the bulk and manifest endpoints. Every file becomes
// one independent background task; the response returns before any work runs.
func SetupBulkRoutes(router *gin.Engine, queueClient *asynq.Client) {
	router.PUT("/bulk", func(c *gin.Context) {
		var event models.BulkEvent
		if err := c.ShouldBindJSON(&event); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		if err := enqueueFiles(queueClient, queue.NewIngestFileTask, event.UniqueID, event.FilePaths); err != nil {
			utils.RespondWithInternalError(c, "Failed to enqueue ingestion", gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Processing in the background"})
	})

	router.DELETE("/bulk", func(c *gin.Context) {
		var event models.BulkEvent
		if err := c.ShouldBindJSON(&event); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		if err := enqueueFiles(queueClient, queue.NewDeleteFileTask, event.UniqueID, event.FilePaths); err != nil {
			utils.RespondWithInternalError(c, "Failed to enqueue deletion", gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Processing in the background"})
	})

	// A manifest is an uploaded JSON array of {"name": ...} entries; the
	// manifest's own filename becomes the document identifier.
	router.PUT("/manifest", func(c *gin.Context) {
		name, paths, ok := readManifest(c)
		if !ok {
			return
		}

		if err := enqueueFiles(queueClient, queue.NewIngestFileTask, name, paths); err != nil {
			utils.RespondWithInternalError(c, "Failed to enqueue ingestion", gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"unique_id": name})
	})

	router.DELETE("/manifest", func(c *gin.Context) {
		name, paths, ok := readManifest(c)
		if !ok {
			return
		}

		if err := enqueueFiles(queueClient, queue.NewDeleteFileTask, name, paths); err != nil {
			utils.RespondWithInternalError(c, "Failed to enqueue deletion", gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"unique_id": name})
	})
}

type taskFunc func(uniqueID, filePath string) (*asynq.Task, error)

func enqueueFiles(client *asynq.Client, newTask taskFunc, uniqueID string, filePaths []string) error {
	for _, filePath := range filePaths {
		task, err := newTask(uniqueID, filePath)
		if err != nil {
			return err
		}
		info, err := client.Enqueue(task)
		if err != nil {
			return err
		}
		logger.Debug("Enqueued task", "type", task.Type(), "id", info.ID, "file_path", filePath)
	}
	return nil
}

func readManifest(c *gin.Context) (name string, paths []string, ok bool) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		utils.RespondWithBadRequest(c, "No manifest file provided", gin.H{"error": err.Error()})
		return "", nil, false
	}

	f, err := fileHeader.Open()
	if err != nil {
		utils.RespondWithInternalError(c, "Failed to read manifest", gin.H{"error": err.Error()})
		return "", nil, false
	}
	defer f.Close()

	var entries []models.ManifestEntry
	if err := json.NewDecoder(f).Decode(&entries); err != nil {
		utils.RespondWithBadRequest(c, "Manifest is not a JSON list of {name} entries", gin.H{"error": err.Error()})
		return "", nil, false
	}

	paths = make([]string, 0, len(entries))
	for _, e := range entries {
		paths = append(paths, e.Name)
	}
	return fileHeader.Filename, paths, true
}
