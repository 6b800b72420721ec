package httpapi

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"vlmeval/internal/dataset"
	"vlmeval/pkg/types"
)

// uploadForm is the parsed multipart body of an analyze request.
type uploadForm struct {
	images []types.Image
	mode   types.PromptMode
	labels *types.ClassificationLabels
	models []string
	model  string
}

// parseUpload reads images from the given file fields. Uploads stay in memory
// up to the upload limit and are never written to disk by the handler.
func parseUpload(w http.ResponseWriter, r *http.Request, fields ...string) (uploadForm, error) {
	var f uploadForm
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) || strings.Contains(err.Error(), "request body too large") {
			return f, requestError{status: http.StatusRequestEntityTooLarge, msg: fmt.Sprintf("upload exceeds %d bytes", maxUploadBytes)}
		}
		return f, badRequest("expected a multipart/form-data body")
	}
	defer r.MultipartForm.RemoveAll()

	for _, field := range fields {
		for _, fh := range r.MultipartForm.File[field] {
			img, err := readImage(fh)
			if err != nil {
				return f, err
			}
			f.images = append(f.images, img)
		}
	}
	if len(f.images) == 0 {
		return f, badRequest("image not found in request")
	}

	f.mode = types.ParsePromptMode(r.FormValue("mode"))
	pos, neg := strings.TrimSpace(r.FormValue("positive")), strings.TrimSpace(r.FormValue("negative"))
	if pos != "" || neg != "" {
		f.labels = &types.ClassificationLabels{Positive: pos, Negative: neg}
	}
	f.model = strings.TrimSpace(r.FormValue("model"))
	f.models = formList(r.MultipartForm.Value, "models", "models[]")
	return f, nil
}

// parseTruth pairs labels[] with the uploaded images by position.
func parseTruth(r *http.Request, images []types.Image) (map[string]string, error) {
	labels := formList(r.MultipartForm.Value, "labels", "labels[]")
	if len(labels) == 0 {
		return nil, nil
	}
	if len(labels) != len(images) {
		return nil, badRequest(fmt.Sprintf("got %d labels for %d images", len(labels), len(images)))
	}
	truth := make(map[string]string, len(images))
	for i, l := range labels {
		if l == "" || l == "-" {
			continue
		}
		t := dataset.NormalizeTruth(l)
		if t == "" {
			return nil, badRequest(fmt.Sprintf("label %q for %s must be positive or negative", l, images[i].Name))
		}
		truth[images[i].Name] = t
	}
	return truth, nil
}

func readImage(fh *multipart.FileHeader) (types.Image, error) {
	if !dataset.AllowedExtension(fh.Filename) {
		return types.Image{}, badRequest(fmt.Sprintf("unsupported file type: %s", fh.Filename))
	}
	file, err := fh.Open()
	if err != nil {
		return types.Image{}, err
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return types.Image{}, err
	}
	img, err := dataset.NewImage(fh.Filename, data)
	if err != nil {
		return types.Image{}, badRequest(err.Error())
	}
	return img, nil
}

// formList accepts repeated fields and comma-separated values.
func formList(values map[string][]string, keys ...string) []string {
	var out []string
	for _, k := range keys {
		for _, v := range values[k] {
			out = append(out, splitCSV(v)...)
		}
	}
	return out
}

func splitCSV(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
