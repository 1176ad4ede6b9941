package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mbd888/chainrisk/internal/analyzer"
	"github.com/mbd888/chainrisk/internal/logging"
	"github.com/mbd888/chainrisk/internal/validation"
)

// analyzeRequest is bound from the query string (GET) or JSON body (POST).
type analyzeRequest struct {
	Address    string `form:"address" json:"address" binding:"required,evmaddress"`
	Blockchain string `form:"blockchain" json:"blockchain" binding:"omitempty,chain"`
}

var analyzeFields = map[string]string{
	"Address":    "address",
	"Blockchain": "blockchain",
}

// analyzeHandler handles GET and POST /v1/analyze
func (s *Server) analyzeHandler(c *gin.Context) {
	var req analyzeRequest
	var err error
	if c.Request.Method == http.MethodPost {
		err = c.ShouldBindJSON(&req)
	} else {
		err = c.ShouldBindQuery(&req)
	}
	if err != nil {
		invalidRequest(c, validation.FromBinding(err, analyzeFields))
		return
	}

	chain := req.Blockchain
	if chain == "" {
		chain = s.cfg.DefaultChain
	}

	rep, err := s.analyzer.Analyze(c.Request.Context(), req.Address, chain)
	if err != nil {
		var re *analyzer.RequestError
		if errors.As(err, &re) {
			invalidRequest(c, re.Errs)
			return
		}
		logging.L(c.Request.Context()).Error("analysis failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to analyze address",
		})
		return
	}

	c.JSON(http.StatusOK, analyzer.NewResponse(rep))
}

func invalidRequest(c *gin.Context, errs validation.ValidationErrors) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "invalid_request",
		"message": errs.Error(),
		"fields":  errs,
	})
}
