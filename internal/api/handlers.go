package api

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "kurio/internal/common/errors"
	"kurio/internal/common/rag"
	"kurio/internal/entries"
)

type askRequest struct {
	Question        string `json:"question"`
	RetrievalMethod string `json:"retrieval_method"`
	K               *int   `json:"k"`
	Retries         *int   `json:"retries"`
}

func (s *Server) ask(c *gin.Context) {
	if s.deps.Asker == nil {
		unavailable(c, "question answering")
		return
	}

	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		renderError(c, apperrors.NewQuestionInvalidError("Request body must be JSON with a question field"))
		return
	}

	var opts []rag.Option
	if req.RetrievalMethod != "" {
		opts = append(opts, rag.WithRetrievalMethod(rag.RetrievalMethod(req.RetrievalMethod)))
	}
	if req.K != nil {
		opts = append(opts, rag.WithK(*req.K))
	}
	if req.Retries != nil {
		opts = append(opts, rag.WithRetries(*req.Retries))
	}

	answer, err := s.deps.Asker.Ask(c.Request.Context(), req.Question, opts...)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, answer)
}

func (s *Server) listEntries(c *gin.Context) {
	if s.deps.Entries == nil {
		unavailable(c, "entries")
		return
	}
	list, err := s.deps.Entries.List(c.Request.Context(), c.Query("category"))
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (s *Server) submitEntry(c *gin.Context) {
	if s.deps.Entries == nil {
		unavailable(c, "entries")
		return
	}

	var sub entries.Submission
	if err := c.ShouldBindJSON(&sub); err != nil {
		renderError(c, apperrors.NewEntryValidationFailedError("request body must be a JSON object"))
		return
	}

	entry, err := s.deps.Entries.Submit(c.Request.Context(), sub)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

func (s *Server) searchEntries(c *gin.Context) {
	if s.deps.Entries == nil {
		unavailable(c, "entries")
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(entries.ListLimit)))

	found, err := s.deps.Entries.Search(c.Request.Context(), c.Query("q"), limit)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, found)
}

// streamEntries sends the current entries as a server-sent "entries" event,
// then a new event whenever they change, until the client disconnects.
func (s *Server) streamEntries(c *gin.Context) {
	if s.deps.Entries == nil {
		unavailable(c, "entries")
		return
	}

	sub, err := s.deps.Entries.Subscribe(c.Request.Context(), c.Query("category"))
	if err != nil {
		renderError(c, err)
		return
	}
	defer sub.Close()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.Stream(func(w io.Writer) bool {
		select {
		case snapshot, ok := <-sub.Snapshots():
			if !ok {
				return false
			}
			c.SSEvent("entries", snapshot)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

func (s *Server) trending(c *gin.Context) {
	if s.deps.Entries == nil {
		unavailable(c, "entries")
		return
	}
	t, err := s.deps.Entries.Trending(c.Request.Context())
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (s *Server) financials(c *gin.Context) {
	if s.deps.Financials == nil {
		unavailable(c, "financials")
		return
	}
	f, err := s.deps.Financials.Get(c.Request.Context(), c.Param("ticker"))
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, f)
}

func (s *Server) insights(c *gin.Context) {
	if s.deps.Insights == nil {
		renderError(c, apperrors.NewContentNotConfiguredError())
		return
	}
	list, err := s.deps.Insights.List(c.Request.Context())
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) signIn(c *gin.Context) {
	if s.deps.Auth == nil {
		unavailable(c, "sign-in")
		return
	}

	var req signInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		renderError(c, apperrors.NewAuthenticationFailedError("request body must be a JSON object"))
		return
	}

	session, err := s.deps.Auth.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}
