package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"readersync/internal/database/documents"
	"readersync/internal/entities"
)

// FilesController handles the document sync endpoints.
type FilesController struct {
	docs *documents.Repository
}

// NewFilesController creates a new files controller.
func NewFilesController(docs *documents.Repository) *FilesController {
	return &FilesController{docs: docs}
}

// RegisterRoutes registers the file routes on the /api/files group.
func (fc *FilesController) RegisterRoutes(group *gin.RouterGroup) {
	group.GET("", fc.ListFiles)
	group.POST("", fc.UploadFile)
	group.GET("/:file_id", fc.GetFile)
	group.DELETE("/:file_id", fc.DeleteFile)
	group.GET("/:file_id/download", fc.DownloadFile)
	group.PUT("/:file_id/position", fc.UpdatePosition)
	group.PUT("/:file_id/voice", fc.UpdateVoice)
	group.GET("/:file_id/highlights", fc.GetHighlights)
	group.PUT("/:file_id/highlights", fc.PutHighlights)
}

type fileMetadata struct {
	Filename            string    `json:"filename"`
	Title               string    `json:"title"`
	Format              string    `json:"format"`
	ReadingPosition     *string   `json:"reading_position"`
	Voice               *string   `json:"voice"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
	PositionUpdatedAt   time.Time `json:"position_updated_at"`
	HighlightsUpdatedAt time.Time `json:"highlights_updated_at"`
	VoiceUpdatedAt      time.Time `json:"voice_updated_at"`
}

type tombstoneEntry struct {
	Filename  string    `json:"filename"`
	Format    string    `json:"format"`
	Deleted   bool      `json:"deleted"`
	DeletedAt time.Time `json:"deleted_at"`
}

// ListFiles returns every document's metadata, newest first, followed by the
// owner's tombstones. Tombstones ride along as entries with "deleted": true
// so clients purge their local copies instead of re-uploading.
func (fc *FilesController) ListFiles(c *gin.Context) {
	owner := GetOwner(c)

	docs, err := fc.docs.ListDocuments(owner)
	if err != nil {
		respondInternalError(c, err, "list files")
		return
	}
	tombstones, err := fc.docs.ListTombstones(owner)
	if err != nil {
		respondInternalError(c, err, "list tombstones")
		return
	}

	files := make([]any, 0, len(docs)+len(tombstones))
	for _, doc := range docs {
		files = append(files, fileMetadata{
			Filename:            doc.FileID,
			Title:               doc.Title,
			Format:              doc.Format,
			ReadingPosition:     doc.ReadingPosition,
			Voice:               doc.Voice,
			CreatedAt:           doc.CreatedAt,
			UpdatedAt:           doc.UpdatedAt,
			PositionUpdatedAt:   doc.PositionUpdatedAt,
			HighlightsUpdatedAt: doc.HighlightsUpdatedAt,
			VoiceUpdatedAt:      doc.VoiceUpdatedAt,
		})
	}
	for _, t := range tombstones {
		files = append(files, tombstoneEntry{
			Filename:  t.CanonicalName,
			Deleted:   true,
			DeletedAt: t.DeletedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{"files": files})
}

// UploadFile stores a document from a multipart form with file_id, title,
// format, optional voice, and the binary file field.
func (fc *FilesController) UploadFile(c *gin.Context) {
	fileID := c.PostForm("file_id")
	title := c.PostForm("title")
	format := c.PostForm("format")

	var voice *string
	if v, ok := c.GetPostForm("voice"); ok && v != "" {
		voice = &v
	}

	fileHeader, err := c.FormFile("file")
	if fileID == "" || title == "" || format == "" || err != nil {
		respondBadRequest(c, "missing required fields: file_id, title, format, file")
		return
	}
	if format != entities.FormatPDF && format != entities.FormatEPUB {
		respondBadRequest(c, "format must be 'pdf' or 'epub'")
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		respondInternalError(c, err, "open upload")
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		respondInternalError(c, err, "read upload")
		return
	}

	key, err := fc.docs.PutDocument(GetOwner(c), fileID, title, format, data, voice)
	if errors.Is(err, documents.ErrDocumentDeleted) {
		respondGone(c, "file was deleted; clear the local copy instead of re-uploading")
		return
	}
	if err != nil {
		respondInternalError(c, err, "store upload")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"file_id": key,
		"message": "File uploaded successfully",
	})
}

// GetFile returns a document's metadata, or 404 with exists=false.
func (fc *FilesController) GetFile(c *gin.Context) {
	fileID := c.Param("file_id")

	doc, err := fc.docs.GetDocument(GetOwner(c), fileID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"exists": false, "file_id": fileID})
		return
	}
	if err != nil {
		respondInternalError(c, err, "get file")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"exists":                true,
		"file_id":               doc.FileID,
		"title":                 doc.Title,
		"format":                doc.Format,
		"reading_position":      doc.ReadingPosition,
		"voice":                 doc.Voice,
		"created_at":            doc.CreatedAt,
		"updated_at":            doc.UpdatedAt,
		"position_updated_at":   doc.PositionUpdatedAt,
		"highlights_updated_at": doc.HighlightsUpdatedAt,
		"voice_updated_at":      doc.VoiceUpdatedAt,
	})
}

// DownloadFile streams the stored blob back to the client.
func (fc *FilesController) DownloadFile(c *gin.Context) {
	fileID := c.Param("file_id")

	data, err := fc.docs.GetBlob(GetOwner(c), fileID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		respondNotFound(c, "file")
		return
	}
	if err != nil {
		respondInternalError(c, err, "download file")
		return
	}

	filename := entities.CanonicalDocumentName(fileID)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/octet-stream", data)
}

// DeleteFile purges every key variant of the document and leaves a
// tombstone. Deleting an already-deleted document refreshes the tombstone.
func (fc *FilesController) DeleteFile(c *gin.Context) {
	fileID := c.Param("file_id")

	ok, err := fc.docs.DeleteDocument(GetOwner(c), fileID)
	if err != nil {
		respondInternalError(c, err, "delete file")
		return
	}
	if !ok {
		respondBadRequest(c, "invalid file_id")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "File deleted"})
}

// UpdatePosition stores the reading position pushed by a device.
func (fc *FilesController) UpdatePosition(c *gin.Context) {
	fileID := c.Param("file_id")

	var req struct {
		Position any `json:"position"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Position == nil {
		respondBadRequest(c, "missing 'position' field")
		return
	}

	found, err := fc.docs.UpdatePosition(GetOwner(c), fileID, toStringValue(req.Position))
	if err != nil {
		respondInternalError(c, err, "update position")
		return
	}
	if !found {
		respondNotFound(c, "file")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Position updated"})
}

// UpdateVoice stores the narration voice selection.
func (fc *FilesController) UpdateVoice(c *gin.Context) {
	fileID := c.Param("file_id")

	var req struct {
		Voice string `json:"voice"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Voice == "" {
		respondBadRequest(c, "missing 'voice' field")
		return
	}

	found, err := fc.docs.UpdateVoice(GetOwner(c), fileID, req.Voice)
	if err != nil {
		respondInternalError(c, err, "update voice")
		return
	}
	if !found {
		respondNotFound(c, "file")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Voice updated"})
}

// GetHighlights returns the document's highlights, sentence order. Unknown
// keys yield an empty list rather than 404; a device may ask before its
// first push.
func (fc *FilesController) GetHighlights(c *gin.Context) {
	fileID := c.Param("file_id")

	highlights, err := fc.docs.GetHighlights(GetOwner(c), fileID)
	if err != nil {
		respondInternalError(c, err, "get highlights")
		return
	}
	if highlights == nil {
		highlights = []entities.Highlight{}
	}
	c.JSON(http.StatusOK, gin.H{"highlights": highlights})
}

// PutHighlights replaces the document's whole highlight set.
func (fc *FilesController) PutHighlights(c *gin.Context) {
	fileID := c.Param("file_id")

	var body map[string]any
	if err := c.ShouldBindJSON(&body); err != nil {
		respondBadRequest(c, "invalid JSON body")
		return
	}
	raw, ok := body["highlights"].([]any)
	if !ok {
		respondBadRequest(c, "missing or invalid 'highlights' field")
		return
	}

	inputs := make([]documents.HighlightInput, 0, len(raw))
	for _, item := range raw {
		if m, isMap := item.(map[string]any); isMap {
			inputs = append(inputs, documents.HighlightInputFromJSON(m))
		} else {
			// Non-object items carry no index and are skipped by the engine.
			inputs = append(inputs, documents.HighlightInput{})
		}
	}

	count, err := fc.docs.ReplaceHighlights(GetOwner(c), fileID, inputs)
	if err != nil {
		respondInternalError(c, err, "replace highlights")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": fmt.Sprintf("Updated %d highlights", count),
	})
}

// toStringValue renders a JSON scalar the way the engine stores positions:
// strings pass through, numbers lose no precision.
func toStringValue(v any) string {
	switch value := v.(type) {
	case string:
		return value
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(value)
	default:
		return fmt.Sprint(value)
	}
}
