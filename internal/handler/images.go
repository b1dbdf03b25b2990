package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/truonghoc/studio/internal/document"
	"github.com/truonghoc/studio/internal/media"
	"github.com/truonghoc/studio/internal/model"
)

type imageResponse struct {
	DataURI  string `json:"data_uri"`
	MIMEType string `json:"mime_type"`
	FileName string `json:"file_name"`
}

// imageCall runs one image capability behind the in-flight guard.
func (h *Handler) imageCall(w http.ResponseWriter, r *http.Request, c model.Capability,
	run func(ctx context.Context) (model.GenerationResult, error)) {
	release, ok := h.claim(w, r, c)
	if !ok {
		return
	}
	defer release()

	res, err := run(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeImage(w, r, res.DataURI)
}

func (h *Handler) writeImage(w http.ResponseWriter, r *http.Request, dataURI string) {
	part, err := media.ParseDataURI(dataURI)
	if err != nil {
		h.writeError(w, r, fmt.Errorf("generated image: %w", err))
		return
	}
	name := document.ImageFileName(time.Now(), part.MIMEType)

	if wantsDownload(r, "download", "1") {
		data, err := media.Decode(part)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		writeAttachment(w, part.MIMEType, name, data)
		return
	}
	writeJSON(w, http.StatusOK, imageResponse{DataURI: dataURI, MIMEType: part.MIMEType, FileName: name})
}

func (h *Handler) handleCareerImage(w http.ResponseWriter, r *http.Request) {
	if err := h.parseForm(w, r); err != nil {
		h.writeError(w, r, err)
		return
	}
	portrait, err := requireFile(r, "portrait")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	career := formValue(r, "career")
	if career != "" && !h.catalog.HasCareer(career) {
		h.writeError(w, r, fmt.Errorf("%w: %s", errUnknownCareer, career))
		return
	}
	h.imageCall(w, r, model.CapabilityCareerImage, func(ctx context.Context) (model.GenerationResult, error) {
		return h.studio.CareerImage(ctx, portrait, career)
	})
}

func (h *Handler) handleMergeImages(w http.ResponseWriter, r *http.Request) {
	if err := h.parseForm(w, r); err != nil {
		h.writeError(w, r, err)
		return
	}
	subject, err := requireFile(r, "subject")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	background, err := requireFile(r, "background")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.imageCall(w, r, model.CapabilityMergeImages, func(ctx context.Context) (model.GenerationResult, error) {
		return h.studio.MergeImages(ctx, subject, background)
	})
}

func (h *Handler) handleEditImage(w http.ResponseWriter, r *http.Request) {
	if err := h.parseForm(w, r); err != nil {
		h.writeError(w, r, err)
		return
	}
	img, err := requireFile(r, "image")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	instruction := formValue(r, "instruction")
	h.imageCall(w, r, model.CapabilityEditImage, func(ctx context.Context) (model.GenerationResult, error) {
		return h.studio.EditImage(ctx, img, instruction)
	})
}

func (h *Handler) handleRemoveBackground(w http.ResponseWriter, r *http.Request) {
	if err := h.parseForm(w, r); err != nil {
		h.writeError(w, r, err)
		return
	}
	img, err := requireFile(r, "image")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.imageCall(w, r, model.CapabilityRemoveBackground, func(ctx context.Context) (model.GenerationResult, error) {
		return h.studio.RemoveBackground(ctx, img)
	})
}

func (h *Handler) handleProImage(w http.ResponseWriter, r *http.Request) {
	if err := h.parseForm(w, r); err != nil {
		h.writeError(w, r, err)
		return
	}
	prompt := formValue(r, "prompt")
	tier := model.ResolutionTier(formValue(r, "tier"))
	if tier == "" {
		tier = model.Resolution1K
	}
	h.imageCall(w, r, model.CapabilityProImage, func(ctx context.Context) (model.GenerationResult, error) {
		return h.studio.ProImage(ctx, prompt, tier)
	})
}
