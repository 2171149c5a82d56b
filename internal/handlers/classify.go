package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"fitcoach-backend/internal/ml"
	"fitcoach-backend/internal/models"
	"fitcoach-backend/internal/pipeline"
)

// ErrEmptyRequest is returned for a classification request without samples
var ErrEmptyRequest = errors.New("no samples")

// Classifier labels one feature vector
type Classifier interface {
	Classify(features pipeline.FeatureVector) (ml.Prediction, error)
	Version() string
}

// ClassifyHandler serves single-window classification
type ClassifyHandler struct {
	classifier Classifier
}

// NewClassifyHandler creates a new classification handler
func NewClassifyHandler(classifier Classifier) *ClassifyHandler {
	return &ClassifyHandler{classifier: classifier}
}

// ClassifyWindow labels one window of already fused samples. The samples are
// used as they are; no resampling happens on this path.
func (h *ClassifyHandler) ClassifyWindow(c *gin.Context) {
	var req models.ClassifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid request",
			"details": err.Error(),
		})
		return
	}

	if len(req.Samples) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": ErrEmptyRequest.Error()})
		return
	}

	table := pipeline.TableFromSamples(req.Rows())
	features, err := pipeline.ExtractFeatures(table, 0, table.Len())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid window",
			"details": err.Error(),
		})
		return
	}

	pred, err := h.classifier.Classify(features)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "classification failed",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, pred)
}
