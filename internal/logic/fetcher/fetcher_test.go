package fetcher

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"holosim-indexer/internal/consts"
	"holosim-indexer/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rpcRequest struct {
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

type requestLog struct {
	mu   sync.Mutex
	reqs []rpcRequest
}

func (l *requestLog) all() []rpcRequest {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]rpcRequest(nil), l.reqs...)
}

// rpcServer 按 method 返回固定的 JSON-RPC 响应体，并记录收到的请求
func rpcServer(t *testing.T, bodies map[string]string) (*RpcFetcher, *requestLog) {
	t.Helper()
	seen := &requestLog{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		raw, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(raw, &req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		seen.mu.Lock()
		seen.reqs = append(seen.reqs, req)
		seen.mu.Unlock()

		body, ok := bodies[req.Method]
		if !ok {
			http.Error(w, "unknown method", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)

	f, err := NewRpcFetcher(srv.URL, time.Second)
	require.NoError(t, err)
	return f, seen
}

func TestListProgramAccounts(t *testing.T) {
	var addr types.Pubkey
	addr[0], addr[31] = 7, 9
	data := []byte{1, 2, 3, 4, 5, 6, 7, 8, 42}

	body := `{"jsonrpc":"2.0","id":1,"result":[{"pubkey":"` + addr.String() + `","account":{` +
		`"lamports":2039280,"owner":"` + consts.HolosimProgramAddr + `","rentEpoch":18446744073709551615,` +
		`"executable":false,"data":["` + base64.StdEncoding.EncodeToString(data) + `","base64"]}}]}`
	f, seen := rpcServer(t, map[string]string{"getProgramAccounts": body})

	accounts, err := f.ListProgramAccounts(context.Background(), consts.HolosimProgram)
	require.NoError(t, err)
	require.Len(t, accounts, 1)

	acc := accounts[0]
	assert.Equal(t, addr, acc.Address)
	assert.Equal(t, consts.HolosimProgram, acc.ProgramID)
	assert.Equal(t, consts.HolosimProgram, acc.Owner)
	assert.Equal(t, uint64(2039280), acc.Lamports)
	assert.Equal(t, uint64(18446744073709551615), acc.RentEpoch)
	assert.Equal(t, data, acc.Data)
	assert.False(t, acc.FirstSeen.IsZero())

	reqs := seen.all()
	require.Len(t, reqs, 1)
	req := reqs[0]
	require.Len(t, req.Params, 2)
	assert.JSONEq(t, `"`+consts.HolosimProgramAddr+`"`, string(req.Params[0]))
	assert.JSONEq(t, `{"encoding":"base64","commitment":"confirmed"}`, string(req.Params[1]))
}

func TestListProgramAccounts_RpcError(t *testing.T) {
	f, _ := rpcServer(t, map[string]string{
		"getProgramAccounts": `{"jsonrpc":"2.0","id":1,"error":{"code":-32010,"message":"excluded from account secondary indexes"}}`,
	})
	_, err := f.ListProgramAccounts(context.Background(), consts.HolosimProgram)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "secondary indexes")
}

func TestListProgramAccounts_BadData(t *testing.T) {
	f, _ := rpcServer(t, map[string]string{
		"getProgramAccounts": `{"jsonrpc":"2.0","id":1,"result":[{"pubkey":"` + consts.HolosimProgramAddr + `","account":{` +
			`"lamports":1,"owner":"` + consts.HolosimProgramAddr + `","rentEpoch":0,"executable":false,"data":"AQID"}}]}`,
	})
	_, err := f.ListProgramAccounts(context.Background(), consts.HolosimProgram)
	assert.Error(t, err)
}

func TestFetchTransaction(t *testing.T) {
	f, seen := rpcServer(t, map[string]string{
		"getTransaction": `{"jsonrpc":"2.0","id":1,"result":{"slot":321,"blockTime":1700000000,` +
			`"meta":{"err":null,"logMessages":["Program ` + consts.HolosimProgramAddr + ` invoke [1]","Program log: ok"]},` +
			`"transaction":["AQID","base64"]}}`,
	})

	tx, err := f.FetchTransaction(context.Background(), "5sig")
	require.NoError(t, err)
	assert.Equal(t, "5sig", tx.Signature)
	assert.Equal(t, uint64(321), tx.Slot)
	require.NotNil(t, tx.BlockTime)
	assert.Equal(t, int64(1700000000), *tx.BlockTime)
	assert.False(t, tx.Failed)
	assert.Len(t, tx.LogLines, 2)

	reqs := seen.all()
	require.Len(t, reqs, 1)
	require.Len(t, reqs[0].Params, 2)
	assert.JSONEq(t, `{"encoding":"base64","commitment":"confirmed","maxSupportedTransactionVersion":0}`, string(reqs[0].Params[1]))
}

func TestFetchTransaction_MetaErr(t *testing.T) {
	f, _ := rpcServer(t, map[string]string{
		"getTransaction": `{"jsonrpc":"2.0","id":1,"result":{"slot":5,"meta":{"err":{"InstructionError":[0,"Custom"]},"logMessages":[]}}}`,
	})
	tx, err := f.FetchTransaction(context.Background(), "bad")
	require.NoError(t, err)
	assert.True(t, tx.Failed)
}

func TestFetchTransaction_NotFound(t *testing.T) {
	f, _ := rpcServer(t, map[string]string{
		"getTransaction": `{"jsonrpc":"2.0","id":1,"result":null}`,
	})
	_, err := f.FetchTransaction(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrTxNotFound)
}

func TestFetchTransaction_HttpError(t *testing.T) {
	f, _ := rpcServer(t, map[string]string{})
	_, err := f.FetchTransaction(context.Background(), "x")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrTxNotFound)
}

func TestNewRpcFetcher_EmptyEndpoint(t *testing.T) {
	_, err := NewRpcFetcher("", time.Second)
	assert.Error(t, err)
}
