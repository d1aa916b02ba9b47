// Package httpapi exposes the minimal REST surface for room creation and
// lookup, plus the socket upgrade endpoint.
package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/park285/chess-arena/internal/arena"
	"github.com/park285/chess-arena/internal/gateway"
	"github.com/park285/chess-arena/pkg/wire"
)

func NewRouter(reg *arena.Registry, gw *gateway.Gateway) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/ws", gw.HandleWS)
	r.GET("/healthz", healthHandler)

	api := r.Group("/api")
	api.POST("/rooms", createRoomHandler(reg))
	api.GET("/rooms/:id", getRoomHandler(reg))

	return r
}

func healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func createRoomHandler(reg *arena.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, err := reg.CreateRoom()
		if err != nil {
			if errors.Is(err, arena.ErrTooManyRooms) {
				c.JSON(http.StatusServiceUnavailable, gin.H{"error": "too many active rooms"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create room"})
			return
		}
		c.JSON(http.StatusCreated, wire.RoomCreated{RoomID: sess.ID()})
	}
}

func getRoomHandler(reg *arena.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, err := reg.Get(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
			return
		}
		snap, err := sess.Snapshot()
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
			return
		}

		players := make([]wire.Player, 0, len(snap.Players))
		for _, s := range snap.Players {
			players = append(players, wire.Player{ID: s.ConnID, Color: string(s.Color)})
		}
		c.JSON(http.StatusOK, gin.H{
			"roomId": snap.RoomID,
			"game": wire.GameState{
				FEN:    snap.FEN,
				Status: string(snap.Status),
			},
			"players": players,
		})
	}
}
