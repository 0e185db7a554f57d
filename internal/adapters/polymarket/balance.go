package polymarket

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"
)

// usdcEAddress is the bridged USDC.e contract the exchange settles in.
const usdcEAddress = "0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174"

var balanceOfABI = mustABI(`[{
	"name":"balanceOf","type":"function",
	"inputs":[{"name":"account","type":"address"}],
	"outputs":[{"name":"","type":"uint256"}]
}]`)

func mustABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic("balanceOf abi: " + err.Error())
	}
	return parsed
}

// contractCaller is the subset of ethclient.Client the reader needs.
type contractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// BalanceReader reads the wallet's on-chain USDC.e balance.
type BalanceReader struct {
	rpc    contractCaller
	owner  common.Address
	token  common.Address
	closer func()
}

// NewBalanceReader dials rpcURL and reads balances for owner.
func NewBalanceReader(ctx context.Context, rpcURL, owner string) (*BalanceReader, error) {
	if !common.IsHexAddress(owner) {
		return nil, fmt.Errorf("balance: invalid owner address %q", owner)
	}
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("balance: dial rpc: %w", err)
	}
	return &BalanceReader{
		rpc:    client,
		owner:  common.HexToAddress(owner),
		token:  common.HexToAddress(usdcEAddress),
		closer: client.Close,
	}, nil
}

// USDCBalance returns the balance in USDC.
func (br *BalanceReader) USDCBalance(ctx context.Context) (float64, error) {
	callData, err := balanceOfABI.Pack("balanceOf", br.owner)
	if err != nil {
		return 0, fmt.Errorf("balance: pack: %w", err)
	}

	result, err := br.rpc.CallContract(ctx, ethereum.CallMsg{To: &br.token, Data: callData}, nil)
	if err != nil {
		return 0, fmt.Errorf("balance: rpc call: %w", err)
	}

	vals, err := balanceOfABI.Unpack("balanceOf", result)
	if err != nil {
		return 0, fmt.Errorf("balance: unpack: %w", err)
	}
	if len(vals) == 0 {
		return 0, fmt.Errorf("balance: empty result")
	}
	raw, ok := vals[0].(*big.Int)
	if !ok {
		return 0, fmt.Errorf("balance: unexpected type %T", vals[0])
	}
	return decimal.NewFromBigInt(raw, -6).InexactFloat64(), nil
}

// Close releases the RPC connection.
func (br *BalanceReader) Close() {
	if br.closer != nil {
		br.closer()
	}
}
