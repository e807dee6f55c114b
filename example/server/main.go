// A minimal collector to develop and demo against: it accepts the
// envelopes the SDK delivers and prints a short summary per record.
//
// Run it and point the SDK at it:
//
//	COOLHAND_API_KEY=anything go run ./example/server &
//	collector_url: http://localhost:8090/v1/interactions
package main

import (
	"flag"
	"log"
	"net/http"
	"sync/atomic"

	"github.com/gin-gonic/gin"

	"github.com/coolhand-ai/coolhand-go/capture"
)

func main() {
	addr := flag.String("addr", ":8090", "listen address")
	flag.Parse()

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	var received atomic.Int64
	engine.POST("/v1/interactions", func(c *gin.Context) {
		var rec capture.Record
		if err := c.ShouldBindJSON(&rec); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		n := received.Add(1)
		log.Printf("[%d] %s %s -> %d model=%q streaming=%v duration=%dms",
			n, rec.Method, rec.URL, rec.ResponseStatus, rec.Model, rec.Streaming, rec.DurationMS)
		c.JSON(http.StatusAccepted, gin.H{"id": rec.ID})
	})

	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"received": received.Load()})
	})

	log.Printf("collector listening on %s", *addr)
	if err := engine.Run(*addr); err != nil {
		log.Fatal(err)
	}
}
