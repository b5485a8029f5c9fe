package statsview

import (
	"fmt"
	"io"

	"github.com/go-echarts/statsview"
	"github.com/go-echarts/statsview/viewer"

	"dmgo/internal/logger"
)

// Address is the default listen address.
const Address = "localhost:12600"

const url = "/debug/statsview"

// Server is a running stats server.
type Server struct {
	addr string
	mgr  *statsview.ViewManager
}

// Launch starts the stats server on addr in a new goroutine and writes the
// URL to output. An empty addr uses Address.
func Launch(output io.Writer, addr string) *Server {
	if addr == "" {
		addr = Address
	}

	viewer.SetConfiguration(viewer.WithAddr(addr))
	s := &Server{addr: addr, mgr: statsview.New()}

	go func() {
		s.mgr.Start()
		logger.Logf(logger.Allow, "statsview", "server on %s stopped", addr)
	}()

	fmt.Fprintf(output, "stats server available at %s\n", s.URL())
	return s
}

// URL returns the address of the statistics page.
func (s *Server) URL() string {
	return s.addr + url
}

// Stop shuts the server down.
func (s *Server) Stop() {
	s.mgr.Stop()
}
