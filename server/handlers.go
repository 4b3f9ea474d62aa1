package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"cityetl/database"
	"cityetl/extract"
	"cityetl/rollup"
)

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func parseYearParam(c *gin.Context) (int, bool) {
	year, err := strconv.Atoi(c.Param("year"))
	if err != nil || year < 1900 || year > 2100 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid year"})
		return 0, false
	}
	return year, true
}

func (s *Server) handleMoneyFlowIndex(c *gin.Context) {
	years, err := s.store.AvailableYears(database.DatasetFinancial)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, rollup.BuildGoldIndex(years, s.config.GoldBaseURL+"/money-flow", time.Now()))
}

func (s *Server) handleMoneyFlow(c *gin.Context) {
	year, ok := parseYearParam(c)
	if !ok {
		return
	}

	facts, err := s.store.AllFacts(database.DatasetFinancial)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if len(facts) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "no financial data loaded"})
		return
	}

	years, err := s.store.AvailableYears(database.DatasetFinancial)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	aggs, err := extract.AggregateFinancial(facts, "", "")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	summary := rollup.BuildMoneyFlowSummary(year, aggs, years, time.Now())
	if summary.Revenue.Total == 0 && summary.Expenditure.Total == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "no data for requested year"})
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (s *Server) handleCapitalIndex(c *gin.Context) {
	years, err := s.store.AvailableYears(database.DatasetCapital)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, rollup.BuildGoldIndex(years, s.config.GoldBaseURL+"/capital", time.Now()))
}

func (s *Server) handleCapital(c *gin.Context) {
	year, ok := parseYearParam(c)
	if !ok {
		return
	}

	facts, err := s.store.FactsByYear(database.DatasetCapital, year)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if len(facts) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "no data for requested year"})
		return
	}

	c.JSON(http.StatusOK, rollup.BuildCapitalSummary(year, facts, time.Now()))
}

func (s *Server) handleCouncilSummary(c *gin.Context) {
	recentDays := 365
	if raw := c.Query("days"); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil || days < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid days"})
			return
		}
		recentDays = days
	}

	decisions, err := s.store.DecisionsSince("0000-01-01")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	lobbying, err := s.store.LobbyistActivities()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, rollup.BuildCouncilSummary(decisions, lobbying, recentDays, time.Now()))
}

func (s *Server) handleTrends(c *gin.Context) {
	dataset := c.Param("dataset")
	switch dataset {
	case database.DatasetCapital, database.DatasetFinancial, database.DatasetOperating:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown dataset"})
		return
	}

	dimension := c.DefaultQuery("dimension", "category")

	facts, err := s.store.AllFacts(dataset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if len(facts) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "no data loaded for dataset"})
		return
	}

	c.JSON(http.StatusOK, rollup.BuildTrendSeries(facts, dimension, time.Now()))
}
