package handler

import (
	"net/http"

	"vibecheck/internal/app/prefsync"
	"vibecheck/internal/app/session"
	"vibecheck/internal/pkg/req"
	"vibecheck/internal/pkg/resp"
)

// acquireSynchronizer returns the caller's loaded synchronizer. On failure the error response
// has already been written.
func acquireSynchronizer(deps *AppDeps, w http.ResponseWriter, r *http.Request) (*prefsync.Synchronizer, func(), bool) {
	subject, ok := requireSubject(w, r)
	if !ok {
		return nil, nil, false
	}

	token, _ := session.FromContext(r.Context()).Token()

	s, release, err := deps.Preferences.Acquire(r.Context(), subject, token)
	if err != nil {
		respondErr(w, r, err)
		return nil, nil, false
	}

	return s, release, true
}

// HandleGetPreferences returns the caller's preference snapshot.
func HandleGetPreferences(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, release, ok := acquireSynchronizer(deps, w, r)
		if !ok {
			return
		}
		defer release()

		resp.RespondSuccess(w, r, s.Snapshot())
	}
}

// HandlePatchPreferences applies an edit. The write happens once edits pause; the response
// carries the snapshot right after the edit.
func HandlePatchPreferences(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var patch prefsync.Patch
		if customErr := req.BindJSON(w, r, &patch); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		s, release, ok := acquireSynchronizer(deps, w, r)
		if !ok {
			return
		}
		defer release()

		if err := s.Apply(patch); err != nil {
			respondErr(w, r, err)
			return
		}

		resp.RespondSuccess(w, r, s.Snapshot())
	}
}

// HandleFlushPreferences writes pending edits now and returns the resulting snapshot.
func HandleFlushPreferences(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, release, ok := acquireSynchronizer(deps, w, r)
		if !ok {
			return
		}
		defer release()

		if err := s.Flush(r.Context()); err != nil {
			respondErr(w, r, err)
			return
		}

		resp.RespondSuccess(w, r, s.Snapshot())
	}
}
