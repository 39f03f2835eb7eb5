// Package mockbackend is a stand-in for the attendance AI backend. It
// speaks the same HTTP contract with canned recognition so the client can
// be exercised end to end without the real service.
package mockbackend

import (
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"classroll/internal/auth"
	"classroll/internal/httpmiddleware"
	"classroll/internal/model"
)

const spreadsheetMIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Config controls the fake backend.
type Config struct {
	Username        string
	Password        string
	Issuer          string
	SigningKey      string
	AccessTTL       time.Duration
	RateLimitPerMin int
	// InlineCounts adds X-Present-Count / X-Absent-Count to spreadsheet replies.
	InlineCounts bool
}

type student struct {
	Name       string
	RollNumber string
	Standard   string
	Division   string
	Frames     int
}

// Server holds the enrolled roster in memory.
type Server struct {
	cfg     Config
	mu      sync.RWMutex
	roster  map[string]student
	limiter *httpmiddleware.TokenBucket
}

// New creates a backend with an empty roster.
func New(cfg Config) *Server {
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = time.Hour
	}
	return &Server{
		cfg:     cfg,
		roster:  make(map[string]student),
		limiter: httpmiddleware.NewTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin),
	}
}

// Router builds the gin engine.
func (s *Server) Router() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(s.limiter.GinMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.POST("/login", s.login)

	authed := r.Group("/", auth.BearerAuth(s.cfg.SigningKey, s.cfg.Issuer))
	authed.POST("/vectordb/students/video", s.registerStudent)
	authed.GET("/vectordb/students", s.listStudents)
	authed.POST("/attendance/images-attendance", s.processAttendance)
	return r
}

func (s *Server) login(c *gin.Context) {
	if c.PostForm("grant_type") != "password" {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "grant_type must be password"})
		return
	}
	username := c.PostForm("username")
	if username != s.cfg.Username || c.PostForm("password") != s.cfg.Password {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Incorrect username or password"})
		return
	}
	token, _, err := auth.Issue(username, username, "teacher", s.cfg.Issuer, s.cfg.SigningKey, s.cfg.AccessTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "token issue failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": token, "token_type": "bearer"})
}

// param reads a multipart field, falling back to the query string.
func param(c *gin.Context, key string) string {
	if v := c.PostForm(key); v != "" {
		return v
	}
	return c.Query(key)
}

func (s *Server) registerStudent(c *gin.Context) {
	file, header, err := c.Request.FormFile("video")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Video file is required"})
		return
	}
	defer file.Close()
	size, _ := io.Copy(io.Discard, file)

	st := student{
		Name:       strings.TrimSpace(param(c, "name")),
		RollNumber: strings.TrimSpace(param(c, "roll_number")),
		Standard:   strings.TrimSpace(param(c, "standard")),
		Division:   strings.TrimSpace(param(c, "division")),
	}
	if st.Name == "" || st.RollNumber == "" || st.Standard == "" || st.Division == "" {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "name, roll_number, standard and division are required"})
		return
	}
	minImages := intParam(c, "min_required_images", 5)
	maxFrames := intParam(c, "max_frames", 100)
	interval := intParam(c, "frame_interval", 30)
	st.Frames = maxFrames

	s.mu.Lock()
	_, exists := s.roster[st.RollNumber]
	if !exists {
		s.roster[st.RollNumber] = st
	}
	s.mu.Unlock()

	if exists {
		c.JSON(http.StatusOK, gin.H{
			"status":  "error",
			"message": fmt.Sprintf("Student with roll number %s already exists", st.RollNumber),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": fmt.Sprintf("Student %s registered successfully", st.Name),
		"video_info": gin.H{
			"filename":   header.Filename,
			"size_bytes": size,
		},
		"processing_summary": gin.H{
			"frames_extracted":    maxFrames,
			"frame_interval":      interval,
			"embeddings_stored":   minImages,
			"min_required_images": minImages,
		},
	})
}

func (s *Server) listStudents(c *gin.Context) {
	s.mu.RLock()
	names := make(map[string]string, len(s.roster))
	for roll, st := range s.roster {
		names[roll] = st.Name
	}
	s.mu.RUnlock()
	c.JSON(http.StatusOK, gin.H{"list of enrolled student names": names})
}

// processAttendance marks every enrolled student of the class present.
func (s *Server) processAttendance(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil || len(form.File["images"]) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "No images provided"})
		return
	}
	standard := strings.TrimSpace(c.PostForm("standard"))
	division := strings.TrimSpace(c.PostForm("division"))
	if standard == "" || division == "" {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "standard and division are required"})
		return
	}

	s.mu.RLock()
	var class []student
	for _, st := range s.roster {
		if st.Standard == standard && st.Division == division {
			class = append(class, st)
		}
	}
	s.mu.RUnlock()
	sort.Slice(class, func(i, j int) bool { return class[i].RollNumber < class[j].RollNumber })

	rows := [][]string{{"Roll Number", "Name", "Status"}}
	for _, st := range class {
		rows = append(rows, []string{st.RollNumber, st.Name, model.StatusPresent})
	}
	sheet, err := buildSheet(rows)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "could not build spreadsheet"})
		return
	}

	if s.cfg.InlineCounts {
		c.Header("X-Present-Count", strconv.Itoa(len(class)))
		c.Header("X-Absent-Count", "0")
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="attendance_%s%s.xlsx"`, standard, division))
	c.Data(http.StatusOK, spreadsheetMIME, sheet)
}

func intParam(c *gin.Context, key string, fallback int) int {
	if v, err := strconv.Atoi(param(c, key)); err == nil && v > 0 {
		return v
	}
	return fallback
}
