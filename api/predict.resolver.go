package api

import (
	"fmt"

	"quantshield/internal/domain"

	"github.com/gin-gonic/gin"
)

type PredictRequest struct {
	Holdings []struct {
		Ticker string  `json:"ticker"`
		Weight float64 `json:"weight"`
	} `json:"holdings"`
}

type PredictResponse struct {
	RiskClass     string               `json:"risk_class"`
	Features      domain.FeatureVector `json:"features"`
	Probabilities map[string]float64   `json:"probabilities"`
	Explanation   string               `json:"explanation"`
}

func (m ApiHandler) predict(c *gin.Context) {
	var requestBody PredictRequest
	if err := c.ShouldBindJSON(&requestBody); err != nil {
		c.AbortWithStatusJSON(400, gin.H{
			"error": fmt.Sprintf("failed to parse request body: %v", err),
		})
		return
	}

	holdings := make([]domain.Holding, 0, len(requestBody.Holdings))
	for _, h := range requestBody.Holdings {
		holdings = append(holdings, domain.Holding{Ticker: h.Ticker, Weight: h.Weight})
	}

	out, err := m.Orchestrator.Predict(c.Request.Context(), domain.NewPortfolio(holdings))
	if err != nil {
		returnErrorJson(err, c)
		return
	}

	probabilities := map[string]float64{}
	for class, p := range out.Result.Probabilities {
		probabilities[string(class)] = p
	}

	c.JSON(200, PredictResponse{
		RiskClass:     string(out.Result.Class),
		Features:      out.Result.Features,
		Probabilities: probabilities,
		Explanation:   out.Explanation,
	})
}
