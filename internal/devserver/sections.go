package devserver

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sandeepkv93/tasktree/internal/model"
)

func (s *Server) handleListSections(c *gin.Context) {
	userID := c.Param("id")
	if userID != currentUser(c) {
		s.respondError(c, fmt.Errorf("%w: sections belong to another user", errForbidden))
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"sections": s.store.visibleSections(userID)})
}

func (s *Server) handleCreateSection(c *gin.Context) {
	var req struct {
		Name string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, badRequest("invalid payload"))
		return
	}
	section, err := s.store.createSection(currentUser(c), req.Name)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"section": section})
}

func (s *Server) handleDeleteSection(c *gin.Context) {
	if err := s.store.deleteSection(currentUser(c), c.Param("id")); err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"message": "section deleted"})
}

func (s *Server) handleTogglePublic(c *gin.Context) {
	var out model.Section
	err := s.store.withSection(c.Param("id"), func(sec *model.Section) error {
		if !sec.IsOwner(currentUser(c)) {
			return fmt.Errorf("%w: only the owner can change visibility", errForbidden)
		}
		sec.IsPubliclyShared = !sec.IsPubliclyShared
		out = sec.Clone()
		return nil
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"section": out})
}

// handleShareSection reuses an existing token so links stay stable.
func (s *Server) handleShareSection(c *gin.Context) {
	var token string
	err := s.store.withSection(c.Param("id"), func(sec *model.Section) error {
		if !sec.IsOwner(currentUser(c)) {
			return fmt.Errorf("%w: only the owner can share a section", errForbidden)
		}
		if sec.ShareToken == "" {
			sec.ShareToken = newID()
		}
		sec.IsPubliclyShared = true
		token = sec.ShareToken
		return nil
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"shareToken": token, "shareUrl": s.baseURL + "/shared/" + token})
}

func (s *Server) handleSharedSection(c *gin.Context) {
	section, err := s.store.sharedSection(c.Param("token"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"section": section})
}
