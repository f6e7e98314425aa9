package clob

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"math/rand"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/polymarket/go-order-utils/pkg/builder"
	"github.com/polymarket/go-order-utils/pkg/model"
	"github.com/shopspring/decimal"
)

// usdc and outcome tokens both use 6 decimal places on chain
var microScale = decimal.New(1, 6)

// zeroAddress is the taker for publicly fillable orders
const zeroAddress = "0x0000000000000000000000000000000000000000"

// Signer produces EIP-712 signed exchange orders.
type Signer struct {
	key    *ecdsa.PrivateKey
	maker  string
	orders builder.ExchangeOrderBuilder
}

// NewSigner creates a signer from a hex private key (no 0x prefix).
func NewSigner(privateKeyHex string, chainID int64) (*Signer, error) {
	key, err := crypto.HexToECDSA(privateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	maker := crypto.PubkeyToAddress(key.PublicKey).Hex()
	saltGen := func() int64 {
		return rand.New(rand.NewSource(time.Now().UnixNano())).Int63()
	}

	return &Signer{
		key:    key,
		maker:  maker,
		orders: builder.NewExchangeOrderBuilderImpl(big.NewInt(chainID), saltGen),
	}, nil
}

// Address returns the maker address derived from the signing key
func (s *Signer) Address() string {
	return s.maker
}

// SignedOrder pairs the raw signed payload with the fields the REST
// layer needs without reaching into the library struct.
type SignedOrder struct {
	Raw     *model.SignedOrder
	TokenID string
	Side    Side
	Price   decimal.Decimal
	Size    decimal.Decimal
}

// SignOrder builds and signs an exchange order for the given token,
// price and size. Amounts are scaled to 6-decimal integer units: a BUY
// spends price*size USDC for size shares, a SELL is the reverse.
func (s *Signer) SignOrder(tokenID string, side Side, price, size decimal.Decimal) (*SignedOrder, error) {
	notional := price.Mul(size).Mul(microScale).Round(0)
	shares := size.Mul(microScale).Round(0)

	var makerAmount, takerAmount decimal.Decimal
	var orderSide model.Side
	if side == SideBuy {
		makerAmount, takerAmount = notional, shares
		orderSide = model.BUY
	} else {
		makerAmount, takerAmount = shares, notional
		orderSide = model.SELL
	}

	orderData := &model.OrderData{
		Maker:         s.maker,
		Taker:         zeroAddress,
		TokenId:       tokenID,
		MakerAmount:   makerAmount.String(),
		TakerAmount:   takerAmount.String(),
		Side:          orderSide,
		FeeRateBps:    "0",
		Nonce:         "0",
		Expiration:    "0",
		SignatureType: model.EOA,
	}

	signed, err := s.orders.BuildSignedOrder(s.key, orderData, model.CTFExchange)
	if err != nil {
		return nil, fmt.Errorf("sign order: %w", err)
	}

	return &SignedOrder{
		Raw:     signed,
		TokenID: tokenID,
		Side:    side,
		Price:   price,
		Size:    size,
	}, nil
}
