package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
)

// reloadModel swaps in a freshly persisted artifact without restarting
// the process. In-flight predictions keep the snapshot they started with.
func (m ApiHandler) reloadModel(c *gin.Context) {
	if err := m.Models.Load(); err != nil {
		returnErrorJson(fmt.Errorf("failed to reload model: %w", err), c)
		return
	}

	model, err := m.Models.Get()
	if err != nil {
		returnErrorJson(err, c)
		return
	}

	c.JSON(200, gin.H{
		"message":        "model reloaded",
		"schema_version": model.SchemaVersion,
		"algorithm":      model.Algorithm,
	})
}
