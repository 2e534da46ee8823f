// Package server exposes egg inspection over HTTP so other tooling can ask
// what a descriptor needs before generating anything.
package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"k8s.io/klog/v2"

	"github.com/NickMagic25/kubeegg/egg"
	"github.com/NickMagic25/kubeegg/fetch"
	"github.com/NickMagic25/kubeegg/prompt"
	"github.com/NickMagic25/kubeegg/types"
)

type requirementsRequest struct {
	Source string `json:"source" binding:"required"`
}

// Requirements summarizes what a normalized egg asks of the operator.
type Requirements struct {
	Name           string              `json:"name"`
	Description    string              `json:"description,omitempty"`
	Startup        string              `json:"startup,omitempty"`
	StartupVars    []string            `json:"startup_vars,omitempty"`
	Images         []types.ImageOption `json:"images"`
	Variables      []types.Variable    `json:"variables,omitempty"`
	Ports          []types.PortSpec    `json:"ports,omitempty"`
	HasInstall     bool                `json:"has_install"`
	ResolvedSource string              `json:"resolved_source"`
}

// NewRouter builds the gin engine with all routes registered.
func NewRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/healthz", healthz)
	router.POST("/requirements", requirements)
	return router
}

// Run serves the API on the given address until the listener fails.
func Run(addr string) error {
	klog.Infof("serving egg API on %s", addr)
	return NewRouter().Run(addr)
}

func healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func requirements(c *gin.Context) {
	var req requirementsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "source is required"})
		return
	}

	result, err := fetch.Load(c.Request.Context(), req.Source)
	if err != nil {
		klog.Errorf("couldn't load egg from %s: %v", req.Source, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	parsed, err := egg.Parse(result.Data)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, BuildRequirements(parsed, result.ResolvedSource))
}

// BuildRequirements derives the operator-facing summary from a parsed egg.
func BuildRequirements(parsed types.Egg, resolvedSource string) Requirements {
	reqs := Requirements{
		Name:           parsed.Name,
		Description:    parsed.Description,
		Startup:        parsed.Startup,
		Images:         parsed.Images,
		Variables:      parsed.Variables,
		Ports:          parsed.Ports,
		HasInstall:     parsed.Install != nil,
		ResolvedSource: resolvedSource,
	}
	if parsed.Startup != "" {
		reqs.StartupVars = prompt.MissingStartupVars(parsed.Startup, nil)
	}
	return reqs
}
