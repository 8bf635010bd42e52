package cups

import "github.com/phin1x/go-ipp"

// client is the subset of IPP operations the source issues.
type client interface {
	printers(attributes []string) (map[string]ipp.Attributes, error)
	jobs(printer string, limit int, attributes []string) (map[int]ipp.Attributes, error)
}

type ippClient struct {
	c *ipp.CUPSClient
}

func newIPPClient(cfg Config) *ippClient {
	return &ippClient{c: ipp.NewCUPSClient(cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.TLS)}
}

func (a *ippClient) printers(attributes []string) (map[string]ipp.Attributes, error) {
	return a.c.GetPrinters(attributes)
}

func (a *ippClient) jobs(printer string, limit int, attributes []string) (map[int]ipp.Attributes, error) {
	return a.c.GetJobs(printer, "", "not-completed", false, 0, limit, attributes)
}
