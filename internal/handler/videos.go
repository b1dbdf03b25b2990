package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/truonghoc/studio/internal/document"
	appI18n "github.com/truonghoc/studio/internal/i18n"
	"github.com/truonghoc/studio/internal/model"
	"github.com/truonghoc/studio/internal/poller"
	"github.com/truonghoc/studio/internal/studio"
)

// videoJob is an asynchronous video generation held in memory.
type videoJob struct {
	ID         string
	State      poller.State
	Err        error
	Video      *model.Video
	CreatedAt  time.Time
	FinishedAt time.Time
}

// videoRegistry keeps video jobs until ttl after they finish.
type videoRegistry struct {
	mu   sync.Mutex
	jobs map[string]*videoJob
	ttl  time.Duration
}

func newVideoRegistry(ttl time.Duration) *videoRegistry {
	return &videoRegistry{jobs: make(map[string]*videoJob), ttl: ttl}
}

func (v *videoRegistry) add(now time.Time) string {
	id := uuid.NewString()
	v.mu.Lock()
	v.jobs[id] = &videoJob{ID: id, State: poller.Submitted, CreatedAt: now}
	v.mu.Unlock()
	return id
}

// get returns a copy of the job.
func (v *videoRegistry) get(id string) (videoJob, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	j, ok := v.jobs[id]
	if !ok {
		return videoJob{}, false
	}
	return *j, true
}

// setState records progress. Terminal states are set by finish only, so a
// Done job always carries its video.
func (v *videoRegistry) setState(id string, s poller.State) {
	if s.Terminal() {
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if j, ok := v.jobs[id]; ok && !j.State.Terminal() {
		j.State = s
	}
}

func (v *videoRegistry) finish(id string, video *model.Video, err error, now time.Time) {
	v.mu.Lock()
	defer v.mu.Unlock()
	j, ok := v.jobs[id]
	if !ok {
		return
	}
	j.FinishedAt = now
	if err != nil {
		j.State = poller.Failed
		j.Err = err
		return
	}
	j.State = poller.Done
	j.Video = video
}

// purge drops finished jobs older than ttl and returns how many it removed.
func (v *videoRegistry) purge(now time.Time) int {
	v.mu.Lock()
	defer v.mu.Unlock()
	n := 0
	for id, j := range v.jobs {
		if j.State.Terminal() && now.Sub(j.FinishedAt) > v.ttl {
			delete(v.jobs, id)
			n++
		}
	}
	return n
}

type videoStatusResponse struct {
	ID        string       `json:"id"`
	State     poller.State `json:"state"`
	Message   string       `json:"message,omitempty"`
	Error     string       `json:"error,omitempty"`
	Hint      string       `json:"hint,omitempty"`
	MIMEType  string       `json:"mime_type,omitempty"`
	Size      int          `json:"size,omitempty"`
	Download  string       `json:"download,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
}

func (h *Handler) handleStartVideo(w http.ResponseWriter, r *http.Request) {
	if err := h.parseForm(w, r); err != nil {
		h.writeError(w, r, err)
		return
	}
	seed, err := requireFile(r, "image")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	ratio := model.AspectRatio(formValue(r, "ratio"))
	if ratio == "" {
		ratio = model.AspectLandscape
	}
	if !ratio.Valid() {
		h.writeError(w, r, fmt.Errorf("%w: aspect ratio %q", studio.ErrInvalidInput, ratio))
		return
	}
	if !h.studio.VideoAvailable() {
		h.writeError(w, r, studio.ErrVideoUnavailable)
		return
	}
	motion := formValue(r, "motion")

	release, ok := h.claim(w, r, model.CapabilityVideo)
	if !ok {
		return
	}

	id := h.videos.add(time.Now())
	slog.Info("video job accepted", "id", id, "ratio", ratio)

	go func() {
		defer release()
		res, err := h.studio.Video(h.jobCtx, studio.VideoInput{
			Seed:   seed,
			Motion: motion,
			Ratio:  ratio,
			OnTransition: func(s poller.State) {
				h.videos.setState(id, s)
			},
		})
		if err != nil {
			slog.Warn("video job failed", "id", id, "error", err)
		}
		h.videos.finish(id, res.Video, err, time.Now())
	}()

	writeJSON(w, http.StatusAccepted, videoStatusResponse{
		ID:        id,
		State:     poller.Submitted,
		Message:   appI18n.T(r.Context(), "VideoPending"),
		CreatedAt: time.Now().UTC(),
	})
}

func (h *Handler) handleVideoStatus(w http.ResponseWriter, r *http.Request) {
	job, ok := h.videos.get(chi.URLParam(r, "id"))
	if !ok {
		h.writeError(w, r, errVideoNotFound)
		return
	}

	resp := videoStatusResponse{ID: job.ID, State: job.State, CreatedAt: job.CreatedAt.UTC()}
	switch job.State {
	case poller.Done:
		resp.MIMEType = job.Video.MIMEType
		resp.Size = len(job.Video.Data)
		resp.Download = "/api/videos/" + job.ID + "/download"
	case poller.Failed:
		_, e := h.describeError(r, job.Err)
		resp.Error, resp.Hint = e.Error, e.Hint
	default:
		resp.Message = appI18n.T(r.Context(), "VideoPending")
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleVideoDownload(w http.ResponseWriter, r *http.Request) {
	job, ok := h.videos.get(chi.URLParam(r, "id"))
	if !ok {
		h.writeError(w, r, errVideoNotFound)
		return
	}
	switch job.State {
	case poller.Done:
		writeAttachment(w, job.Video.MIMEType, document.VideoFileName, job.Video.Data)
	case poller.Failed:
		h.writeError(w, r, job.Err)
	default:
		h.writeError(w, r, errVideoNotReady)
	}
}
