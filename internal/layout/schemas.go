// internal/layout/schemas.go
package layout

// Router program state account (81 bytes).
var GlobalStateSchema = NewSchema("global_state",
	Field{"isInitialized", Bool},
	Field{"stateOwner", PubKey},
	Field{"feeOwner", PubKey},
	Field{"feeNumerator", U64},
	Field{"feeDenominator", U64},
)

// Router RouteSwap payload (19 bytes).
var RouteSwapSchema = NewSchema("route_swap",
	Field{"instruction", U8},
	Field{"route1", U8},
	Field{"route2", U8},
	Field{"amountIn", U64},
	Field{"amountOut", U64},
)

// Router UpdateState payload (17 bytes).
var UpdateStateSchema = NewSchema("update_state",
	Field{"instruction", U8},
	Field{"feeNumerator", U64},
	Field{"feeDenominator", U64},
)

// Standalone venue swap payload shared by Raydium swapBaseIn,
// Saber swap and Mercurial exchange (17 bytes).
var TokenSwapSchema = NewSchema("token_swap",
	Field{"instruction", U8},
	Field{"amountIn", U64},
	Field{"minimumAmountOut", U64},
)

// Wormhole token bridge transfer payload (transfer_native / transfer_wrapped).
var BridgeTransferSchema = NewSchema("bridge_transfer",
	Field{"instruction", U8},
	Field{"nonce", U32},
	Field{"amount", U64},
	Field{"fee", U64},
	Field{"targetAddress", Bytes32},
	Field{"targetChain", U16},
)

// SPL token account prefix: mint, owner, amount.
var TokenAccountSchema = NewSchema("token_account",
	Field{"mint", PubKey},
	Field{"owner", PubKey},
	Field{"amount", U64},
)

// SPL mint prefix (46 bytes).
var MintSchema = NewSchema("mint",
	Field{"mintAuthorityOption", U32},
	Field{"mintAuthority", PubKey},
	Field{"supply", U64},
	Field{"decimals", U8},
	Field{"isInitialized", Bool},
)

// Wormhole core bridge state account prefix; fee is the per-message fee in lamports.
var CoreBridgeSchema = NewSchema("core_bridge",
	Field{"guardianSetIndex", U32},
	Field{"lastLamports", U64},
	Field{"guardianSetExpirationTime", U32},
	Field{"fee", U64},
)
