package shared

import (
	"context"
	"log/slog"
	"net/http"
)

// commitWriter commits the session right before the response header goes out,
// so Set-Cookie is still writable.
type commitWriter struct {
	http.ResponseWriter
	sess      *Session
	manager   *SessionManager
	ctx       context.Context
	req       *http.Request
	logger    *slog.Logger
	committed bool
}

func (w *commitWriter) commit() {
	if w.committed {
		return
	}
	w.committed = true
	if err := w.manager.Commit(w.ctx, w.ResponseWriter, w.req, w.sess); err != nil {
		w.logger.Error("commit session", slog.Any("error", err))
	}
}

func (w *commitWriter) WriteHeader(statusCode int) {
	w.commit()
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *commitWriter) Write(data []byte) (int, error) {
	w.commit()
	return w.ResponseWriter.Write(data)
}

// Middleware loads the session into the request context and commits it with
// the response.
func (sm *SessionManager) Middleware(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, err := sm.Load(r.Context(), r)
			if err != nil {
				logger.Error("failed to load session", slog.Any("error", err))
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			ctx := ContextWithSession(r.Context(), sess)
			r = r.WithContext(ctx)
			wrapped := &commitWriter{ResponseWriter: w, sess: sess, manager: sm, ctx: ctx, req: r, logger: logger}
			next.ServeHTTP(wrapped, r)
			wrapped.commit()
		})
	}
}
