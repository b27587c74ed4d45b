package api

import (
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xenoncommunity/xenon/pkg/proxy"
	"github.com/xenoncommunity/xenon/pkg/proxy/message"
	"github.com/xenoncommunity/xenon/pkg/util/componentutil"
)

// PlayerInfo is a connected player.
type PlayerInfo struct {
	Name     string `json:"name"`
	ID       string `json:"id"`
	Server   string `json:"server,omitempty"`
	Protocol int    `json:"protocol"`
	PingMs   int64  `json:"pingMs"`
	Online   bool   `json:"onlineMode"`
}

// ServerInfo is a registered backend server.
type ServerInfo struct {
	Name    string `json:"name"`
	Addr    string `json:"addr"`
	Players int    `json:"players"`
}

// Status is the response of GET /status.
type Status struct {
	Players   int        `json:"players"`
	Servers   int        `json:"servers"`
	UptimeSec int64      `json:"uptimeSeconds"`
	Host      *HostStats `json:"host,omitempty"`
}

func (s *Server) handleStatus(c *gin.Context) {
	st := Status{
		Players:   s.proxy.PlayerCount(),
		Servers:   len(s.proxy.Servers()),
		UptimeSec: int64(s.proxy.Uptime() / time.Second),
	}
	host, err := s.stats(c.Request.Context())
	if err != nil {
		s.log.V(1).Info("could not read host stats", "error", err)
	} else {
		st.Host = host
	}
	c.JSON(http.StatusOK, st)
}

func (s *Server) handlePlayers(c *gin.Context) {
	list := s.proxy.Players()
	out := make([]PlayerInfo, 0, len(list))
	for _, pl := range list {
		p := PlayerInfo{
			Name:     pl.Username(),
			ID:       pl.ID().String(),
			Protocol: int(pl.Protocol()),
			PingMs:   pl.Ping().Milliseconds(),
			Online:   pl.OnlineMode(),
		}
		if cur := pl.CurrentServer(); cur != nil {
			p.Server = cur.Name()
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	c.JSON(http.StatusOK, gin.H{"players": out, "total": len(out)})
}

func (s *Server) handleServers(c *gin.Context) {
	list := s.proxy.Servers()
	out := make([]ServerInfo, 0, len(list))
	for _, srv := range list {
		out = append(out, ServerInfo{Name: srv.Name(), Addr: srv.Addr().String(), Players: srv.PlayerCount()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	c.JSON(http.StatusOK, gin.H{"servers": out})
}

type sendRequest struct {
	Server string `json:"server" binding:"required"`
}

func (s *Server) handleSend(c *gin.Context) {
	var req sendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body must contain a server"})
		return
	}
	pl := s.proxy.Player(c.Param("name"))
	if pl == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "player not online"})
		return
	}
	target := s.proxy.Server(req.Server)
	if target == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "server not registered"})
		return
	}
	pl.Connect(&proxy.ConnectRequest{Target: target, Reason: proxy.PluginConnect, SendFeedback: true})
	s.log.Info("sending player", "player", pl.Username(), "server", target.Name())
	c.JSON(http.StatusAccepted, gin.H{"player": pl.Username(), "server": target.Name()})
}

type kickRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) handleKick(c *gin.Context) {
	var req kickRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	pl := s.proxy.Player(c.Param("name"))
	if pl == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "player not online"})
		return
	}
	reason := s.proxy.Messages().Component(pl.Locale(), message.KickMessage)
	if req.Reason != "" {
		reason = componentutil.MustLegacy(req.Reason)
	}
	pl.Disconnect(reason)
	s.log.Info("kicked player", "player", pl.Username(), "reason", req.Reason)
	c.JSON(http.StatusOK, gin.H{"player": pl.Username()})
}
