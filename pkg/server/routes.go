package server

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"code.cloudfoundry.org/lager"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mrhapile/draft-data-server/pkg/archiver"
)

const zipContentType = "application/zip"

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.Router.GET("/", s.indexPage)
	s.Router.GET("/dashboard/*filepath", s.dashboardFile)
	s.Router.GET("/draft_data.zip", s.prebuiltArchive)
	s.Router.GET("/download-draft-data", s.downloadDraftData)
	s.Router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	s.Router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})
}

func (s *Server) indexPage(c *gin.Context) {
	s.serveFile(c, filepath.Join(s.Config.ReportsDir, s.Config.IndexFile))
}

func (s *Server) dashboardFile(c *gin.Context) {
	name := c.Param("filepath")
	for _, seg := range strings.Split(name, "/") {
		if seg == ".." {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
	}
	// Clean against a rooted path so the result stays inside DashboardDir.
	rel := path.Clean("/" + name)
	full := filepath.Join(s.Config.DashboardDir, filepath.FromSlash(rel))
	if !within(s.Config.DashboardDir, full) {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("%s not found", filepath.Base(full))})
		return
	}
	s.serveFile(c, full)
}

// within reports whether target, after resolving symlinks, lives under root.
func within(root, target string) bool {
	resolvedRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		return false
	}
	resolved, err := filepath.EvalSymlinks(target)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(resolvedRoot, resolved)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// serveFile sends a regular file or a JSON 404. http.ServeContent is used
// instead of c.File so that names like index.html are not redirected.
func (s *Server) serveFile(c *gin.Context, name string) {
	f, err := os.Open(name)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("%s not found", filepath.Base(name))})
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || !info.Mode().IsRegular() {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("%s not found", filepath.Base(name))})
		return
	}
	http.ServeContent(c.Writer, c.Request, info.Name(), info.ModTime(), f)
}

func (s *Server) prebuiltArchive(c *gin.Context) {
	archivePath := s.Config.PrebuiltPath
	info, err := os.Stat(archivePath)
	if err != nil || !info.Mode().IsRegular() {
		c.JSON(http.StatusNotFound, gin.H{
			"error": fmt.Sprintf("%s not found. Run 'draftzip build' to create it.", filepath.Base(archivePath)),
		})
		return
	}
	s.sendArchive(c, archivePath)
}

// downloadDraftData packages SourceDir into a per-request scratch file and
// streams it. The scratch file is removed once the response is written.
func (s *Server) downloadDraftData(c *gin.Context) {
	requestID := uuid.NewString()
	logger := s.logger.Session("download-draft-data", lager.Data{"request": requestID})

	tmpPath := filepath.Join(s.Config.ScratchDir, fmt.Sprintf("draft_data_%s.zip", requestID))
	defer os.Remove(tmpPath)

	logger.Info("packaging", lager.Data{"source": s.Config.SourceDir, "archive": tmpPath})
	result, err := archiver.Package(s.Config.SourceDir, tmpPath, archiver.WithExclude(s.Config.Exclude...))
	if err != nil {
		if errors.Is(err, archiver.ErrNotFound) {
			logger.Info("source-not-found", lager.Data{"error": err.Error()})
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		logger.Error("packaging-failed", err)
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to create zip: %s", err)})
		return
	}

	logger.Info("packaged", lager.Data{
		"files":        result.FileCount,
		"bytes":        result.SizeBytes,
		"content-hash": result.Manifest.ContentHash,
	})
	s.sendArchive(c, result.ArchivePath)
}

func (s *Server) sendArchive(c *gin.Context, archivePath string) {
	c.Header("Content-Type", zipContentType)
	c.FileAttachment(archivePath, s.Config.DownloadName)
}
