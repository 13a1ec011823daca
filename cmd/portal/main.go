package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/edustack/edustack/internal/api/middleware"
	"github.com/edustack/edustack/internal/config"
	"github.com/edustack/edustack/internal/gate"
	"github.com/edustack/edustack/internal/manage"
	"github.com/edustack/edustack/internal/resolver"
	"github.com/edustack/edustack/internal/session"
	"github.com/edustack/edustack/pkg/authprovider"
)

const sessionHeader = "X-Portal-Session"

// portalSession is one authenticated user's shell: their tenant session
// store, the gate that decides what they see, and the bearer token used for
// manage-console calls.
type portalSession struct {
	user   gate.User
	store  *session.Store
	gate   *gate.Gate
	token  string
	manage *manage.Client
}

type staticToken string

func (t staticToken) SessionToken(ctx context.Context) (string, error) {
	return string(t), nil
}

type portal struct {
	mu       sync.Mutex
	sessions map[string]*portalSession

	cfg      *config.Config
	resolver *resolver.Client
	auth     *authprovider.Client
	logger   *zap.Logger
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	p := &portal{
		sessions: make(map[string]*portalSession),
		cfg:      cfg,
		resolver: resolver.NewClient(cfg.Resolve.APIBaseURL, nil),
		auth:     authprovider.NewClient(cfg.Auth),
		logger:   logger,
	}

	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	router.Use(middleware.Logger(logger))
	router.Use(gin.Recovery())
	router.Use(middleware.CORS())

	router.POST("/login", p.login)
	router.POST("/logout", p.logout)
	router.GET("/shell", p.shell)

	mgmt := router.Group("/manage")
	{
		mgmt.GET("/clients", p.listClients)
		mgmt.POST("/clients", p.addClient)
		mgmt.PUT("/clients/:id/license", p.renewLicense)
		mgmt.POST("/clients/:id/notes", p.addNote)
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start portal", zap.Error(err))
		}
	}()

	logger.Info("Portal started", zap.String("port", cfg.Server.Port))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down portal...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Portal forced to shutdown", zap.Error(err))
	}

	logger.Info("Portal exited")
}

type loginRequest struct {
	Email     string `json:"email" binding:"required"`
	Token     string `json:"token"`
	SessionID string `json:"session_id"`
}

// login runs the tenant resolution for an already-authenticated user and
// settles the gate. The auth provider has verified the account; the portal
// only decides which school shell, if any, to serve.
func (p *portal) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "email is required"})
		return
	}

	store := session.NewStore()
	g := gate.New(p.resolver, store, p.auth, p.logger)
	user := gate.User{
		ID:        uuid.New().String(),
		Email:     req.Email,
		SessionID: req.SessionID,
	}

	state := g.OnAuthenticated(c.Request.Context(), user)

	id := uuid.New().String()
	ps := &portalSession{
		user:   user,
		store:  store,
		gate:   g,
		token:  req.Token,
		manage: manage.NewClient(p.cfg.Resolve.APIBaseURL, staticToken(req.Token)),
	}

	p.mu.Lock()
	p.sessions[id] = ps
	p.mu.Unlock()

	c.Header(sessionHeader, id)
	c.JSON(http.StatusOK, gin.H{
		"session": id,
		"state":   state,
	})
}

func (p *portal) logout(c *gin.Context) {
	id := c.GetHeader(sessionHeader)
	ps := p.session(id)
	if ps == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Session not found"})
		return
	}

	state := ps.gate.Logout(c.Request.Context(), ps.user)

	p.mu.Lock()
	delete(p.sessions, id)
	p.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{"state": state})
}

// shell is the gate's rendering decision: the licensed application shell, a
// blocking license screen, or the resolution failure screen whose only
// action is logout.
func (p *portal) shell(c *gin.Context) {
	ps := p.session(c.GetHeader(sessionHeader))
	if ps == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Session not found. Redirecting to login."})
		return
	}

	snap := ps.store.Snapshot()

	switch ps.gate.State() {
	case gate.StateLicensed:
		c.JSON(http.StatusOK, gin.H{
			"school_name":          snap.SchoolName,
			"db_id":                snap.DatabaseID,
			"gallery_bucket_id":    snap.GalleryBucketID,
			"assignment_bucket_id": snap.AssignmentBucketID,
			"notes_bucket_id":      snap.NotesBucketID,
			"by_contact":           snap.SupportContact,
		})
	case gate.StateLicenseExpired:
		c.JSON(http.StatusForbidden, gin.H{
			"message":    "Your school's license has expired. Please contact support to renew.",
			"by_contact": snap.SupportContact,
			"action":     "logout",
		})
	case gate.StateResolutionFailed:
		c.JSON(http.StatusNotFound, gin.H{
			"message": snap.Err,
			"domain":  snap.Domain,
			"action":  "logout",
		})
	case gate.StateResolving:
		c.JSON(http.StatusAccepted, gin.H{"message": "Verifying your school information, please wait..."})
	default:
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Session not found. Redirecting to login."})
	}
}

func (p *portal) listClients(c *gin.Context) {
	ps := p.session(c.GetHeader(sessionHeader))
	if ps == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Session not found"})
		return
	}

	clients, err := ps.manage.ListClients(c.Request.Context(), manage.ListFilters{
		Name:   c.Query("name"),
		Status: c.Query("status"),
	})
	if err != nil {
		p.renderManageError(c, err)
		return
	}
	c.JSON(http.StatusOK, clients)
}

func (p *portal) addClient(c *gin.Context) {
	ps := p.session(c.GetHeader(sessionHeader))
	if ps == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Session not found"})
		return
	}

	payload := manage.AddClientPayload{
		Name:           c.PostForm("name"),
		Desc:           c.PostForm("desc"),
		Domain:         c.PostForm("domain"),
		AdminName:      c.PostForm("admin_name"),
		LicenseDate:    c.PostForm("license_date"),
		OwnerName:      c.PostForm("byName"),
		SupportContact: c.PostForm("byContact"),
	}

	if file, err := c.FormFile("logoImage"); err == nil && file != nil {
		f, err := file.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Could not read logo file"})
			return
		}
		defer f.Close()
		payload.Logo = f
		payload.LogoFilename = file.Filename
	}

	result, err := ps.manage.AddClient(c.Request.Context(), payload)
	if err != nil {
		p.renderManageError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (p *portal) renewLicense(c *gin.Context) {
	ps := p.session(c.GetHeader(sessionHeader))
	if ps == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Session not found"})
		return
	}

	var req struct {
		LicenseDate string `json:"license_date" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "license_date is required"})
		return
	}

	client, err := ps.manage.UpdateClientLicense(c.Request.Context(), c.Param("id"), req.LicenseDate)
	if err != nil {
		p.renderManageError(c, err)
		return
	}
	c.JSON(http.StatusOK, client)
}

func (p *portal) addNote(c *gin.Context) {
	ps := p.session(c.GetHeader(sessionHeader))
	if ps == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Session not found"})
		return
	}

	var req struct {
		Note string `json:"note" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "note is required"})
		return
	}

	client, err := ps.manage.AddClientNote(c.Request.Context(), c.Param("id"), req.Note)
	if err != nil {
		p.renderManageError(c, err)
		return
	}
	c.JSON(http.StatusOK, client)
}

func (p *portal) renderManageError(c *gin.Context, err error) {
	if apiErr, ok := err.(*manage.APIError); ok && apiErr.StatusCode != 0 {
		c.JSON(apiErr.StatusCode, gin.H{"message": apiErr.Message})
		return
	}
	c.JSON(http.StatusBadGateway, gin.H{"message": err.Error()})
}

func (p *portal) session(id string) *portalSession {
	if id == "" {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sessions[id]
}
