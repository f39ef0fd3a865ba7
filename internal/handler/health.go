package handler

import (
	"context"
	"net/http"
	"time"

	"logospos/internal/infra"
	"logospos/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Health returns a JSON health check response.
// Checks DB and Redis connectivity and reports each delivery gateway's state
// and DLQ depth; never exposes credentials or internals. A down gateway marks
// the response degradado but keeps it 200, since the API still serves.
func Health(db *gorm.DB, rdb *redis.Client, breakers []*infra.GatewayBreaker) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		dbStatus := "connected"
		sqlDB, err := db.DB()
		if err != nil || sqlDB.PingContext(ctx) != nil {
			dbStatus = "error"
		}

		redisStatus := "connected"
		var dlq map[string]int64
		if rdb.Ping(ctx).Err() != nil {
			redisStatus = "error"
		} else {
			dlq, _ = worker.DLQLengths(ctx, rdb)
		}

		gateways := make(map[string]string, len(breakers))
		degradado := false
		for _, b := range breakers {
			estado := b.Estado()
			gateways[b.Gateway()] = estado.String()
			degradado = degradado || estado == infra.GatewayCaido
		}

		status := http.StatusOK
		if dbStatus != "connected" || redisStatus != "connected" {
			status = http.StatusServiceUnavailable
		}

		c.JSON(status, gin.H{
			"ok":        status == http.StatusOK,
			"degradado": degradado,
			"db":        dbStatus,
			"redis":     redisStatus,
			"gateways":  gateways,
			"dlq":       dlq,
		})
	}
}
