package api

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"plantscan/internal/capture"
	"plantscan/internal/plantid"
	"plantscan/internal/session"
	"plantscan/internal/store"
)

// Config defines server dependencies.
type Config struct {
	PlantID        plantid.Config
	DBName         string
	SilentDB       bool
	AllowedOrigins []string
	MaxUploadBytes int64
}

// Server wires HTTP handlers with the capture session.
type Server struct {
	db             *store.Database
	client         *plantid.Client
	session        *session.Session
	notifier       *CaptureNotifier
	metrics        *Metrics
	registry       *prometheus.Registry
	allowedOrigins []string
	maxUpload      int64
}

// NewServer constructs the API server.
func NewServer(cfg Config) (*Server, error) {
	client, err := plantid.NewClient(cfg.PlantID)
	if err != nil {
		if errors.Is(err, plantid.ErrMissingCredentials) {
			return nil, fmt.Errorf("plant.id disabled: configure PLANT_ID_API_KEY")
		}
		return nil, fmt.Errorf("plant.id client: %w", err)
	}

	db, err := store.Open(store.MemoryDSN(cfg.DBName), cfg.SilentDB)
	if err != nil {
		return nil, err
	}

	sess, err := session.New(db, client)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	maxUpload := cfg.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = capture.DefaultMaxBytes
	}

	registry := prometheus.NewRegistry()
	server := &Server{
		db:             db,
		client:         client,
		session:        sess,
		notifier:       NewCaptureNotifier(),
		metrics:        NewMetrics(registry),
		registry:       registry,
		allowedOrigins: cfg.AllowedOrigins,
		maxUpload:      maxUpload,
	}
	sess.Subscribe(server.notifier.Broadcast)
	sess.Subscribe(server.metrics.Observe)

	logrus.WithFields(logrus.Fields{
		"endpoint":   client.Endpoint(),
		"language":   client.Language(),
		"max_upload": maxUpload,
	}).Info("plant identification enabled")
	return server, nil
}

// Session exposes the capture session.
func (s *Server) Session() *session.Session {
	return s.session
}

// Close stops any identification in flight and releases the capture store.
func (s *Server) Close() error {
	s.session.Close()
	return s.db.Close()
}

// Router configures gin routes.
func (s *Server) Router() (*gin.Engine, error) {
	r := gin.Default()
	r.MaxMultipartMemory = s.maxUpload
	r.SetHTMLTemplate(newViewTemplate())

	corsCfg := cors.DefaultConfig()
	if len(s.allowedOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = s.allowedOrigins
		corsCfg.AllowCredentials = true
	}
	corsCfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
	corsCfg.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	r.Use(cors.New(corsCfg))

	r.GET("/api/healthz", s.handleHealth)
	r.GET("/api/config", s.handleConfig)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))

	api := r.Group("/api")
	{
		api.GET("/capture", s.handleGetCapture)
		api.POST("/capture", s.handleCapture)
		api.DELETE("/capture", s.handleDiscard)
		api.GET("/capture/photo", s.handlePhoto)
		api.GET("/capture/stream", s.handleCaptureStream)
	}

	r.GET("/", s.handlePage)
	r.POST("/capture", s.handlePageCapture)
	r.POST("/discard", s.handlePageDiscard)
	r.GET("/read-more/:index", s.handleReadMore)

	return r, nil
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleConfig(c *gin.Context) {
	c.JSON(http.StatusOK, ConfigResponse{
		Endpoint:       s.client.Endpoint(),
		Language:       s.client.Language(),
		Modifiers:      s.client.Modifiers(),
		Details:        s.client.Details(),
		MaxUploadBytes: s.maxUpload,
	})
}

func (s *Server) handleGetCapture(c *gin.Context) {
	view, err := s.session.View()
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) handleCapture(c *gin.Context) {
	photo, err := s.readPhoto(c)
	if err != nil {
		s.renderError(c, captureStatus(err), err)
		return
	}
	if err := s.session.Start(photo); err != nil {
		s.renderError(c, startStatus(err), err)
		return
	}
	c.JSON(http.StatusAccepted, StartCaptureResponse{
		CaptureID: photo.ID,
		State:     session.StateLoading,
		Name:      photo.Name,
		MIMEType:  photo.MIMEType,
		Size:      photo.Size(),
		TakenAt:   photo.TakenAt,
	})
}

func (s *Server) handleDiscard(c *gin.Context) {
	if err := s.session.Discard(); err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, session.View{State: session.StateIdle})
}

func (s *Server) handlePhoto(c *gin.Context) {
	data, mimeType, err := s.session.Photo()
	if err != nil {
		if errors.Is(err, session.ErrNoCapture) {
			s.renderError(c, http.StatusNotFound, err)
		} else {
			s.renderError(c, http.StatusInternalServerError, err)
		}
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, mimeType, data)
}

func (s *Server) handleCaptureStream(c *gin.Context) {
	upgrader := websocket.Upgrader{
		HandshakeTimeout: 5 * time.Second,
		CheckOrigin: func(r *http.Request) bool {
			if len(s.allowedOrigins) == 0 {
				return true
			}
			origin := strings.TrimSpace(r.Header.Get("Origin"))
			for _, allowed := range s.allowedOrigins {
				if strings.EqualFold(origin, allowed) {
					return true
				}
			}
			return false
		},
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).Warn("upgrade websocket")
		return
	}

	client := s.notifier.Register(conn)
	logrus.WithField("remote", conn.RemoteAddr().String()).Info("capture websocket connected")
	defer s.notifier.Unregister(client)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if !websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logrus.WithField("remote", conn.RemoteAddr().String()).Info("capture websocket closed")
			} else {
				logrus.WithError(err).Warn("capture websocket unexpected close")
			}
			break
		}
	}
}

func (s *Server) handlePage(c *gin.Context) {
	s.renderPage(c, http.StatusOK, "")
}

func (s *Server) handlePageCapture(c *gin.Context) {
	photo, err := s.readPhoto(c)
	if err != nil {
		s.renderPage(c, captureStatus(err), err.Error())
		return
	}
	if err := s.session.Start(photo); err != nil {
		s.renderPage(c, startStatus(err), err.Error())
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

func (s *Server) handlePageDiscard(c *gin.Context) {
	if err := s.session.Discard(); err != nil {
		s.renderPage(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

func (s *Server) handleReadMore(c *gin.Context) {
	index, err := strconv.Atoi(strings.TrimSpace(c.Param("index")))
	if err != nil {
		s.renderError(c, http.StatusBadRequest, fmt.Errorf("invalid suggestion index: %w", err))
		return
	}
	link, err := s.session.ReadMore(index)
	if err != nil {
		if errors.Is(err, session.ErrNoCapture) || errors.Is(err, session.ErrNoLink) {
			s.renderError(c, http.StatusNotFound, err)
		} else {
			s.renderError(c, http.StatusInternalServerError, err)
		}
		return
	}
	c.Redirect(http.StatusFound, link)
}

func (s *Server) renderPage(c *gin.Context, status int, notice string) {
	view, err := s.session.View()
	if err != nil {
		logrus.WithError(err).Error("load view")
		view = session.View{State: session.StateIdle}
		notice = err.Error()
	}
	data := pageData{
		View:      view,
		Notice:    notice,
		HasPhoto:  view.Capture != nil,
		MaxUpload: s.maxUpload,
	}
	if view.Capture != nil {
		data.Stamp = view.Capture.TakenAt.UnixNano()
	}
	c.HTML(status, viewTemplateName, data)
}

// readPhoto accepts either a multipart "image" file or a JSON body carrying
// a base64 encoded image.
func (s *Server) readPhoto(c *gin.Context) (capture.Photo, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxUpload*2)
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		header, err := c.FormFile("image")
		if err != nil {
			if errors.Is(err, http.ErrMissingFile) {
				return capture.Photo{}, fmt.Errorf("%w: image file is required", capture.ErrEmptyImage)
			}
			return capture.Photo{}, err
		}
		return s.photoFromHeader(header)
	}

	var req CaptureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return capture.Photo{}, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return capture.FromBase64(req.Name, req.ImageBase64, s.maxUpload)
}

func (s *Server) photoFromHeader(header *multipart.FileHeader) (capture.Photo, error) {
	if header.Size > s.maxUpload {
		return capture.Photo{}, capture.ErrTooLarge
	}
	src, err := header.Open()
	if err != nil {
		return capture.Photo{}, err
	}
	defer src.Close()
	return capture.FromReader(header.Filename, src, s.maxUpload)
}

var errBadRequest = errors.New("invalid capture request")

func captureStatus(err error) int {
	var maxBytesErr *http.MaxBytesError
	switch {
	case errors.Is(err, capture.ErrTooLarge), errors.As(err, &maxBytesErr):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, capture.ErrNotImage):
		return http.StatusUnsupportedMediaType
	default:
		return http.StatusBadRequest
	}
}

func startStatus(err error) int {
	switch {
	case errors.Is(err, session.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, capture.ErrEmptyImage):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) renderError(c *gin.Context, status int, err error) {
	c.JSON(status, ErrorResponse{Error: err.Error()})
}
