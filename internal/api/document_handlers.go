package api

import (
	"log"
	"net/http"

	"github.com/myaibookkeeper/bookkeeper/internal/database"
	"github.com/myaibookkeeper/bookkeeper/internal/models"
)

// maxUploadSize caps uploaded documents at 10 MB
const maxUploadSize = 10 << 20

// UploadDocument stores an uploaded file (receipts, statements, exports)
// under the caller's document prefix and records it locally so it appears
// in data exports and is purged with the account.
func (api *Api) UploadDocument(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserFromContext(r.Context())

	if api.storage == nil {
		respondError(w, http.StatusServiceUnavailable, "Document uploads are not available")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "No file provided")
		return
	}
	defer file.Close()

	result, err := api.storage.UploadDocument(r.Context(), userID, header.Filename, file)
	if err != nil {
		log.Printf("[STORAGE] Failed to upload %s for %s: %v", header.Filename, userID, err)
		respondError(w, http.StatusInternalServerError, "Failed to upload document")
		return
	}

	doc := &models.Document{
		UserID:     userID,
		StorageKey: result.Key,
		Filename:   header.Filename,
		Size:       result.Size,
	}
	if err := database.CreateDocument(doc); err != nil {
		log.Printf("[STORAGE] Failed to record document %s for %s: %v", result.Key, userID, err)
		respondError(w, http.StatusInternalServerError, "Failed to upload document")
		return
	}

	log.Printf("[STORAGE] Uploaded %s (%d bytes) for %s", result.Key, result.Size, userID)
	respondJSON(w, http.StatusCreated, doc)
}

// ListDocuments returns the caller's uploaded documents
func (api *Api) ListDocuments(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserFromContext(r.Context())

	docs, err := database.GetUserDocuments(userID)
	if err != nil {
		log.Printf("[STORAGE] Failed to list documents for %s: %v", userID, err)
		respondError(w, http.StatusInternalServerError, "Failed to list documents")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"documents": docs,
	})
}
