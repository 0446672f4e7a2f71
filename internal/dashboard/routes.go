package dashboard

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// registerRoutes sets up the read-only JSON API on the Gin router. Every
// endpoint reads the local database; nothing here talks to the remote store.
func registerRoutes(router *gin.Engine, db *gorm.DB, workerID string) {
	router.GET("/healthz", handleHealth(db))
	router.GET("/api/active", handleActive(db, workerID))
	router.GET("/api/pending", handlePending(db, workerID))
	router.GET("/api/recent", handleRecent(db, workerID))
	router.GET("/api/sync", handleSync(db, workerID))
	router.GET("/api/buildings", handleBuildings(db))
	router.GET("/api/events", handleEvents(db, workerID))
}

func handleHealth(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.Ping()
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "down", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

func handleActive(db *gorm.DB, workerID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		rows, err := ActiveSessions(db, workerID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"workerId": workerID, "active": rows})
	}
}

func handlePending(db *gorm.DB, workerID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		rows, err := PendingSessions(db, workerID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"workerId": workerID, "pending": rows})
	}
}

func handleRecent(db *gorm.DB, workerID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.Query("limit"))
		rows, err := RecentSessions(db, workerID, limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"workerId": workerID, "recent": rows})
	}
}

func handleSync(db *gorm.DB, workerID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		overview, err := SyncSummary(db, workerID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, overview)
	}
}

func handleBuildings(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		rows, err := BuildingList(db)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"buildings": rows})
	}
}
