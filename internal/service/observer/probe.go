package observer

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/go-resty/resty/v2"
)

// HTTPProbe 请求一个 URL, 任何 5xx 以下的响应都视为在线
type HTTPProbe struct {
	url        string
	httpClient *resty.Client
}

func NewHTTPProbe(url string, timeout time.Duration) *HTTPProbe {
	return &HTTPProbe{url: url, httpClient: resty.New().SetTimeout(timeout)}
}

func (p *HTTPProbe) Check(ctx context.Context) error {
	res, err := p.httpClient.R().SetContext(ctx).Head(p.url)
	if err != nil {
		return err
	}
	if res.StatusCode() >= http.StatusInternalServerError {
		return fmt.Errorf("probe %s: status %d", p.url, res.StatusCode())
	}
	return nil
}

// ChainProbe 以 RPC 节点是否可达作为在线判断
type ChainProbe struct {
	client  *ethclient.Client
	timeout time.Duration
}

func NewChainProbe(client *ethclient.Client, timeout time.Duration) *ChainProbe {
	return &ChainProbe{client: client, timeout: timeout}
}

func (p *ChainProbe) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	_, err := p.client.ChainID(ctx)
	return err
}
