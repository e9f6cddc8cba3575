package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ErrNotFound is returned when the node has no record for the
// requested block, transaction or name.
var ErrNotFound = errors.New("chain: not found")

// RPCError is a JSON-RPC error returned by the node.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

const (
	defaultRequestTimeout = 30 * time.Second
	maxAttempts           = 3
	retryBackoff          = 250 * time.Millisecond
)

// Client talks to an hsd full node. The node serves REST documents on
// GET paths and bitcoind-style JSON-RPC on POST /; both share one
// listener and Basic auth where the API key is the password.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewClient builds a client for the node at baseURL. An empty apiKey
// disables auth, matching a node run with --no-auth.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: defaultRequestTimeout},
	}
}

// WithTimeout overrides the HTTP client timeout, for callers like the
// benchmark tool that want tighter bounds.
func (c *Client) WithTimeout(d time.Duration) *Client {
	c.http = &http.Client{Timeout: d}
	return c
}

// restGet fetches a REST path and decodes the JSON body into out.
// A 404 maps to ErrNotFound. Transient failures (network errors and
// 5xx statuses) are retried with a short backoff.
func (c *Client) restGet(ctx context.Context, path string, out interface{}) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(retryBackoff * time.Duration(attempt-1)):
			}
		}
		retry, err := c.restGetOnce(ctx, path, out)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retry {
			return err
		}
	}
	return lastErr
}

func (c *Client) restGetOnce(ctx context.Context, path string, out interface{}) (retry bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return false, fmt.Errorf("build request %s: %w", path, err)
	}
	if c.apiKey != "" {
		req.SetBasicAuth("x", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return true, fmt.Errorf("get %s: %w", path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return false, ErrNotFound
	case resp.StatusCode >= 500:
		return true, fmt.Errorf("get %s: node returned %d", path, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return false, fmt.Errorf("get %s: node returned %d", path, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return true, fmt.Errorf("read %s: %w", path, err)
	}
	// The node serves JSON null for vanished entities on some paths.
	if bytes.Equal(bytes.TrimSpace(body), []byte("null")) {
		return false, ErrNotFound
	}
	if err := json.Unmarshal(body, out); err != nil {
		return false, fmt.Errorf("decode %s: %w", path, err)
	}
	return false, nil
}

type rpcRequest struct {
	Method string        `json:"method"`
	Params []interface{} `json:"params"`
	ID     int           `json:"id"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
	ID     int             `json:"id"`
}

// rpcCall performs one JSON-RPC call against the node. All methods
// this service uses are reads, so transport failures are retried the
// same way as REST gets.
func (c *Client) rpcCall(ctx context.Context, method string, params []interface{}, out interface{}) error {
	if params == nil {
		params = []interface{}{}
	}
	reqBody, err := json.Marshal(rpcRequest{Method: method, Params: params, ID: 1})
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", method, err)
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(retryBackoff * time.Duration(attempt-1)):
			}
		}
		retry, err := c.rpcCallOnce(ctx, method, reqBody, out)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retry {
			return err
		}
	}
	return lastErr
}

func (c *Client) rpcCallOnce(ctx context.Context, method string, reqBody []byte, out interface{}) (retry bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/", bytes.NewReader(reqBody))
	if err != nil {
		return false, fmt.Errorf("build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.SetBasicAuth("x", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return true, fmt.Errorf("rpc %s: %w", method, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return true, fmt.Errorf("rpc %s: read body: %w", method, err)
	}
	if resp.StatusCode >= 500 && len(body) == 0 {
		return true, fmt.Errorf("rpc %s: node returned %d", method, resp.StatusCode)
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(body, &rpcResp); err != nil {
		return false, fmt.Errorf("rpc %s: decode response: %w", method, err)
	}
	if rpcResp.Error != nil {
		return false, fmt.Errorf("rpc %s: %w", method, rpcResp.Error)
	}
	if out == nil {
		return false, nil
	}
	if len(rpcResp.Result) == 0 || bytes.Equal(bytes.TrimSpace(rpcResp.Result), []byte("null")) {
		return false, ErrNotFound
	}
	if err := json.Unmarshal(rpcResp.Result, out); err != nil {
		return false, fmt.Errorf("rpc %s: decode result: %w", method, err)
	}
	return false, nil
}

// Tip returns the node's best height and hash.
func (c *Client) Tip(ctx context.Context) (*Tip, error) {
	var info NodeInfo
	if err := c.restGet(ctx, "/", &info); err != nil {
		return nil, err
	}
	return &Tip{Height: info.Chain.Height, Hash: info.Chain.Tip}, nil
}

// Info returns the node's root REST document.
func (c *Client) Info(ctx context.Context) (*NodeInfo, error) {
	var info NodeInfo
	if err := c.restGet(ctx, "/", &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// EntryByHeight fetches the chain entry at a main-chain height.
func (c *Client) EntryByHeight(ctx context.Context, height uint64) (*Entry, error) {
	var e Entry
	if err := c.restGet(ctx, "/header/"+strconv.FormatUint(height, 10), &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// EntryByHash fetches the chain entry for a block hash.
func (c *Client) EntryByHash(ctx context.Context, hash string) (*Entry, error) {
	var e Entry
	if err := c.restGet(ctx, "/header/"+url.PathEscape(hash), &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// BlockByHeight fetches a full block with expanded transactions and
// input coin views.
func (c *Client) BlockByHeight(ctx context.Context, height uint64) (*Block, error) {
	var b Block
	if err := c.restGet(ctx, "/block/"+strconv.FormatUint(height, 10), &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// BlockByHash fetches a full block by hash.
func (c *Client) BlockByHash(ctx context.Context, hash string) (*Block, error) {
	var b Block
	if err := c.restGet(ctx, "/block/"+url.PathEscape(hash), &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// Tx fetches a transaction with input coin views and confirmation
// data. Unconfirmed transactions come back with height -1.
func (c *Client) Tx(ctx context.Context, txid string) (*Tx, error) {
	var tx Tx
	if err := c.restGet(ctx, "/tx/"+url.PathEscape(txid), &tx); err != nil {
		return nil, err
	}
	return &tx, nil
}

// TxsByAddress fetches the node's transaction history for an address,
// confirmed and mempool entries alike. The node caps the result at its
// own history limit; callers filter by height as needed.
func (c *Client) TxsByAddress(ctx context.Context, address string) ([]*Tx, error) {
	var txs []*Tx
	err := c.restGet(ctx, "/tx/address/"+url.PathEscape(address), &txs)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return txs, nil
}

// Header fetches the verbose RPC header, carrying median-time-past and
// the next main-chain hash.
func (c *Client) Header(ctx context.Context, hash string) (*BlockHeaderInfo, error) {
	var h BlockHeaderInfo
	if err := c.rpcCall(ctx, "getblockheader", []interface{}{hash, true}, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

// MedianTime returns the median-time-past of the block with the given
// hash.
func (c *Client) MedianTime(ctx context.Context, hash string) (int64, error) {
	h, err := c.Header(ctx, hash)
	if err != nil {
		return 0, err
	}
	return h.MedianTime, nil
}

// NextHash returns the hash of the main-chain block after the given
// one, or "" at the tip.
func (c *Client) NextHash(ctx context.Context, hash string) (string, error) {
	h, err := c.Header(ctx, hash)
	if err != nil {
		return "", err
	}
	return h.NextBlockHash, nil
}

// NameInfo returns rollout data and live auction state for a name.
// Info is nil when the chain has no state yet.
func (c *Client) NameInfo(ctx context.Context, name string) (*NameInfo, error) {
	var ni NameInfo
	if err := c.rpcCall(ctx, "getnameinfo", []interface{}{name}, &ni); err != nil {
		return nil, err
	}
	return &ni, nil
}

// NameByHash resolves a name hash back to its name. ErrNotFound when
// the chain has never seen the hash.
func (c *Client) NameByHash(ctx context.Context, nameHash string) (string, error) {
	var name string
	if err := c.rpcCall(ctx, "getnamebyhash", []interface{}{nameHash}, &name); err != nil {
		return "", err
	}
	if name == "" {
		return "", ErrNotFound
	}
	return name, nil
}

// ChainInfo returns the getblockchaininfo document.
func (c *Client) ChainInfo(ctx context.Context) (*ChainInfo, error) {
	var ci ChainInfo
	if err := c.rpcCall(ctx, "getblockchaininfo", nil, &ci); err != nil {
		return nil, err
	}
	return &ci, nil
}

// MempoolTxids returns the txids currently in the node's mempool,
// newest-insertion order as the node reports them.
func (c *Client) MempoolTxids(ctx context.Context) ([]string, error) {
	var txids []string
	err := c.rpcCall(ctx, "getrawmempool", []interface{}{false}, &txids)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return txids, nil
}

// MempoolInfo returns mempool tx count and byte size.
func (c *Client) MempoolInfo(ctx context.Context) (*MempoolInfo, error) {
	var mi MempoolInfo
	if err := c.rpcCall(ctx, "getmempoolinfo", nil, &mi); err != nil {
		return nil, err
	}
	return &mi, nil
}

// Peers returns the node's current peer list.
func (c *Client) Peers(ctx context.Context) ([]*Peer, error) {
	var peers []*Peer
	err := c.rpcCall(ctx, "getpeerinfo", nil, &peers)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return peers, nil
}

// NetTotals returns cumulative bytes sent/received by the node.
func (c *Client) NetTotals(ctx context.Context) (*NetTotals, error) {
	var nt NetTotals
	if err := c.rpcCall(ctx, "getnettotals", nil, &nt); err != nil {
		return nil, err
	}
	return &nt, nil
}

// RPCInfo returns the getinfo document.
func (c *Client) RPCInfo(ctx context.Context) (*NodeInfoRPC, error) {
	var ni NodeInfoRPC
	if err := c.rpcCall(ctx, "getinfo", nil, &ni); err != nil {
		return nil, err
	}
	return &ni, nil
}

// Ping verifies connectivity and logs the node identity once at
// startup.
func (c *Client) Ping(ctx context.Context) error {
	info, err := c.Info(ctx)
	if err != nil {
		return fmt.Errorf("node unreachable at %s: %w", c.baseURL, err)
	}
	log.Printf("[chain] connected to hsd %s (%s), height %d", info.Version, info.Network, info.Chain.Height)
	return nil
}
