package docstore

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hazyhaar/cartograph/assetpath"
	"github.com/hazyhaar/cartograph/internal/safepath"
	"github.com/hazyhaar/cartograph/kit"
	"github.com/hazyhaar/cartograph/workspace"
)

// ErrNoPath is returned when saving a document that has never been saved
// without giving a name.
var ErrNoPath = errors.New("docstore: document has no file yet, a name is required")

// ErrNoRecents is returned by RecentEndpoint when the Service has no
// RecentSource.
var ErrNoRecents = errors.New("docstore: recent files are not recorded")

// RecentSource reads back the recently used maps and libraries.
type RecentSource interface {
	Recent(ctx context.Context, limit int) (*workspace.Recent, error)
}

// ServiceOptions configures a Service.
type ServiceOptions struct {
	// MapsDir confines every map name. Required.
	MapsDir string
	// Recents backs the recent files endpoint. Nil leaves it out.
	Recents RecentSource
	// Logger overrides the default slog logger.
	Logger *slog.Logger
}

// Service exposes a Loop's Store as transport-neutral endpoints.
type Service struct {
	loop    *Loop
	mapsDir string
	recents RecentSource
	logger  *slog.Logger
}

// NewService creates a Service for loop.
func NewService(loop *Loop, opts ServiceOptions) *Service {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Service{loop: loop, mapsDir: opts.MapsDir, recents: opts.Recents, logger: opts.Logger}
}

// StatusView is the state a UI polls.
type StatusView struct {
	Active        Entry        `json:"active"`
	Documents     int          `json:"documents"`
	Busy          bool         `json:"busy"`
	Saving        bool         `json:"saving"`
	Loading       bool         `json:"loading"`
	Status        string       `json:"status,omitempty"`
	SaveError     string       `json:"save_error,omitempty"`
	LoadError     string       `json:"load_error,omitempty"`
	HasUnsaved    bool         `json:"has_unsaved"`
	MissingAssets *MissingView `json:"missing_assets,omitempty"`

	// LibraryScannedAt is zero without a library.
	LibraryScannedAt time.Time `json:"library_scanned_at,omitzero"`
	Ticks            int64     `json:"ticks"`
}

// MissingView is the load validation warning.
type MissingView struct {
	MapPath string   `json:"map_path"`
	Missing []string `json:"missing"`
}

// AssetsView reports asset problems for the active document.
type AssetsView struct {
	Unavailable []string     `json:"unavailable"`
	LoadWarning *MissingView `json:"load_warning,omitempty"`
}

// DocumentRequest names an open document.
type DocumentRequest struct {
	ID string `json:"id"`
}

// FileRequest names a map inside the maps directory. An empty name saves to
// the active document's current file.
type FileRequest struct {
	Name string `json:"name,omitempty"`
}

// RecentRequest bounds the recent maps list. Zero means the workspace
// default.
type RecentRequest struct {
	Limit int `json:"limit,omitempty"`
}

// FileResponse acknowledges a started save or load. The outcome is reported
// later through the status.
type FileResponse struct {
	Path   string `json:"path"`
	Status string `json:"status"`
}

func missingView(e *assetpath.MissingAssetsError) *MissingView {
	if e == nil {
		return nil
	}
	return &MissingView{MapPath: e.MapPath, Missing: e.Missing}
}

func (sv *Service) wrap(name string, ep kit.Endpoint) kit.Endpoint {
	return kit.Logging(sv.logger, name)(ep)
}

// StatusEndpoint takes no request.
func (sv *Service) StatusEndpoint() kit.Endpoint {
	return sv.wrap("status", func(ctx context.Context, _ any) (any, error) {
		var v StatusView
		err := sv.loop.Do(ctx, func(s *Store) error {
			v = StatusView{
				Active:        s.Active(),
				Documents:     len(s.docs),
				Busy:          s.Busy(),
				Saving:        s.Saving(),
				Loading:       s.Loading(),
				Status:        s.Status(),
				SaveError:     s.SaveError(),
				LoadError:     s.LoadError(),
				HasUnsaved:    s.HasUnsaved(),
				MissingAssets: missingView(s.MissingAssets()),

				LibraryScannedAt: s.LibraryScannedAt(),
			}
			return nil
		})
		v.Ticks = sv.loop.Ticks()
		return v, err
	})
}

// ListEndpoint takes no request.
func (sv *Service) ListEndpoint() kit.Endpoint {
	return sv.wrap("list_documents", func(ctx context.Context, _ any) (any, error) {
		var docs []Entry
		err := sv.loop.Do(ctx, func(s *Store) error {
			docs = s.Documents()
			return nil
		})
		return docs, err
	})
}

// NewEndpoint takes no request.
func (sv *Service) NewEndpoint() kit.Endpoint {
	return sv.wrap("new_document", func(ctx context.Context, _ any) (any, error) {
		var e Entry
		err := sv.loop.Do(ctx, func(s *Store) error {
			e = s.NewDocument()
			return nil
		})
		return e, err
	})
}

// SwitchEndpoint takes a *DocumentRequest.
func (sv *Service) SwitchEndpoint() kit.Endpoint {
	return sv.wrap("switch_document", func(ctx context.Context, req any) (any, error) {
		id := req.(*DocumentRequest).ID
		var e Entry
		err := sv.loop.Do(ctx, func(s *Store) error {
			if err := s.SwitchDocument(id); err != nil {
				return err
			}
			e = s.Active()
			return nil
		})
		return e, err
	})
}

// CloseEndpoint takes a *DocumentRequest.
func (sv *Service) CloseEndpoint() kit.Endpoint {
	return sv.wrap("close_document", func(ctx context.Context, req any) (any, error) {
		id := req.(*DocumentRequest).ID
		var e Entry
		err := sv.loop.Do(ctx, func(s *Store) error {
			if err := s.CloseDocument(id); err != nil {
				return err
			}
			e = s.Active()
			return nil
		})
		return e, err
	})
}

// SaveEndpoint takes a *FileRequest.
func (sv *Service) SaveEndpoint() kit.Endpoint {
	return sv.wrap("save", func(ctx context.Context, req any) (any, error) {
		name := req.(*FileRequest).Name
		var path string
		if name != "" {
			p, err := safepath.MapFile(sv.mapsDir, name)
			if err != nil {
				return nil, err
			}
			path = p
		}
		var resp FileResponse
		err := sv.loop.Do(ctx, func(s *Store) error {
			target := path
			if target == "" {
				target = s.CurrentPath()
			}
			if target == "" {
				return ErrNoPath
			}
			if err := s.StartSave(target); err != nil {
				return err
			}
			resp = FileResponse{Path: target, Status: s.Status()}
			return nil
		})
		return resp, err
	})
}

// LoadEndpoint takes a *FileRequest with a name.
func (sv *Service) LoadEndpoint() kit.Endpoint {
	return sv.wrap("load", func(ctx context.Context, req any) (any, error) {
		path, err := safepath.MapFile(sv.mapsDir, req.(*FileRequest).Name)
		if err != nil {
			return nil, err
		}
		var resp FileResponse
		err = sv.loop.Do(ctx, func(s *Store) error {
			if err := s.StartLoad(path); err != nil {
				return err
			}
			resp = FileResponse{Path: path, Status: s.Status()}
			return nil
		})
		return resp, err
	})
}

// AssetsEndpoint takes no request.
func (sv *Service) AssetsEndpoint() kit.Endpoint {
	return sv.wrap("missing_assets", func(ctx context.Context, _ any) (any, error) {
		var v AssetsView
		err := sv.loop.Do(ctx, func(s *Store) error {
			v = AssetsView{
				Unavailable: s.CheckAssets(),
				LoadWarning: missingView(s.MissingAssets()),
			}
			if v.Unavailable == nil {
				v.Unavailable = []string{}
			}
			return nil
		})
		return v, err
	})
}

// RecentEndpoint takes a *RecentRequest. It does not touch the Store, so it
// answers while a save or load runs.
func (sv *Service) RecentEndpoint() kit.Endpoint {
	return sv.wrap("recent", func(ctx context.Context, req any) (any, error) {
		if sv.recents == nil {
			return nil, ErrNoRecents
		}
		limit := 0
		if r, ok := req.(*RecentRequest); ok && r != nil {
			limit = r.Limit
		}
		return sv.recents.Recent(ctx, limit)
	})
}
