// internal/server/image_handler.go
package server

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"chefsite/internal/settings"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

var ErrInvalidFileType = errors.New("invalid file type")

const (
	maxUploadSize = 5 << 20 // 5 MB
	keepUploads   = 20
)

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// ImageHandler stores uploaded hero and about images under uploadDir,
// which is served at /uploads/.
type ImageHandler struct {
	logger    *logrus.Logger
	uploadDir string
}

func NewImageHandler(logger *logrus.Logger, uploadDir string) (*ImageHandler, error) {
	if err := ensureDir(uploadDir); err != nil {
		return nil, fmt.Errorf("failed to create upload directory %s: %w", uploadDir, err)
	}
	return &ImageHandler{logger: logger, uploadDir: uploadDir}, nil
}

// validateFile sniffs the first bytes of the upload and returns the
// extension to store it under.
func (h *ImageHandler) validateFile(file multipart.File, header *multipart.FileHeader) (string, error) {
	if header.Size > maxUploadSize {
		return "", fmt.Errorf("file too large (max %d MB)", maxUploadSize/(1<<20))
	}
	buffer := make([]byte, 512)
	n, err := file.Read(buffer)
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read file for content type detection: %w", err)
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("failed to rewind file: %w", err)
	}

	detected := http.DetectContentType(buffer[:n])
	ext, ok := imageExtensions[detected]
	if !ok {
		h.logger.WithFields(logrus.Fields{
			"detected": detected,
			"filename": header.Filename,
			"client":   header.Header.Get("Content-Type"),
		}).Warn("rejected upload with invalid content type")
		return "", ErrInvalidFileType
	}
	return ext, nil
}

// saveImage writes the upload under a content hash so the same image is
// only stored once.
func (h *ImageHandler) saveImage(file multipart.File, ext string) (string, error) {
	content, err := io.ReadAll(io.LimitReader(file, maxUploadSize+1))
	if err != nil {
		return "", fmt.Errorf("error reading file: %w", err)
	}
	if len(content) > maxUploadSize {
		return "", fmt.Errorf("file too large (max %d MB)", maxUploadSize/(1<<20))
	}
	hash := sha256.Sum256(content)
	filename := hex.EncodeToString(hash[:16]) + ext
	path := filepath.Join(h.uploadDir, filename)
	if err := os.WriteFile(path, content, 0644); err != nil {
		return "", fmt.Errorf("error writing file to %s: %w", path, err)
	}
	h.logger.WithField("path", path).Debug("saved image")
	return filename, nil
}

// Save validates and stores the "image" field of a parsed multipart form.
func (h *ImageHandler) Save(r *http.Request) (string, error) {
	file, header, err := r.FormFile("image")
	if err != nil {
		return "", fmt.Errorf("invalid file upload: %w", err)
	}
	defer file.Close()

	ext, err := h.validateFile(file, header)
	if err != nil {
		return "", err
	}
	return h.saveImage(file, ext)
}

// cleanupOldImages keeps the newest keep files, never removing the ones
// named in inUse.
func (h *ImageHandler) cleanupOldImages(keep int, inUse ...string) {
	entries, err := os.ReadDir(h.uploadDir)
	if err != nil {
		h.logger.WithError(err).Warn("error listing uploads during cleanup")
		return
	}

	type fileInfo struct {
		path    string
		modTime time.Time
	}
	var files []fileInfo
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || containsKey(inUse, name) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, fileInfo{filepath.Join(h.uploadDir, name), info.ModTime()})
	}
	if len(files) <= keep {
		return
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].modTime.After(files[j].modTime)
	})
	for _, fi := range files[keep:] {
		if err := os.Remove(fi.path); err != nil {
			h.logger.WithError(err).WithField("path", fi.path).Warn("error removing old upload")
			continue
		}
		h.logger.WithField("path", fi.path).Debug("removed old upload")
	}
}

// handleUpload stores an image and points the hero or about image at it.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	target := mux.Vars(r)["target"]
	key, ok := uploadTargets[target]
	if !ok {
		s.handle404(w, r)
		return
	}
	section := settings.SectionGeneral
	if target == "about" {
		section = settings.SectionAbout
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize+(1<<20))
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		s.dashboard(w, r, http.StatusBadRequest, section, s.settings.Get(ctx), "",
			fmt.Sprintf("Upload failed: images must be under %d MB.", maxUploadSize/(1<<20)))
		return
	}
	defer r.MultipartForm.RemoveAll()

	filename, err := s.images.Save(r)
	if err != nil {
		s.logger.WithError(err).WithField("target", target).Warn("image upload rejected")
		msg := "Upload failed: choose a JPEG, PNG, GIF or WebP image."
		if !errors.Is(err, ErrInvalidFileType) {
			msg = "Upload failed: " + err.Error()
		}
		s.dashboard(w, r, http.StatusBadRequest, section, s.settings.Get(ctx), "", msg)
		return
	}

	values := map[string]string{key: "/uploads/" + filename}
	patch, _ := settings.PatchFromValues(values)
	doc, err := s.settings.Update(ctx, patch)
	if err != nil {
		s.logger.WithError(err).WithField("target", target).Error("error saving uploaded image setting")
		s.dashboard(w, r, http.StatusServiceUnavailable, section, doc, "",
			"The image was uploaded but the settings could not be saved. Please try again.")
		return
	}

	s.images.cleanupOldImages(keepUploads, filepath.Base(doc.HeroImage), filepath.Base(doc.AboutImage))

	s.logger.WithFields(logrus.Fields{"target": target, "file": filename}).Info("image uploaded")
	http.Redirect(w, r, "/admin?tab="+string(section)+"&saved=1", http.StatusSeeOther)
}
