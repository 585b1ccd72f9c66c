// internal/registry/defaults.go
package registry

import (
	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/swap-router/internal/bridge"
	"github.com/rovshanmuradov/swap-router/internal/venue"
)

var (
	MercurialProgramID = solana.MustPublicKeyFromBase58("MERLuDFBMmsHnsBPZw2sDQZHvXFMwp8EdjudcU2HKky")
	SaberProgramID     = solana.MustPublicKeyFromBase58("SSwpkEEcbUqx4vtoEByFjSkhKdCT862DNVb52nZg1UZ")
	RaydiumAmmV4       = solana.MustPublicKeyFromBase58("675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8")
	SerumDexV3         = solana.MustPublicKeyFromBase58("9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin")
)

func defaultTokens() []Token {
	return []Token{
		{Symbol: "WSOL", Mint: solana.SolMint, Decimals: 9},
		{Symbol: "USDC", Mint: solana.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"), Decimals: 6},
		{Symbol: "USDT", Mint: solana.MustPublicKeyFromBase58("Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB"), Decimals: 6},
		{Symbol: "RAY", Mint: solana.MustPublicKeyFromBase58("4k3Dyjzvzp8eMZWUXbBCjEvwSkkk59S5iCNLY3QrkX6R"), Decimals: 6},
		{Symbol: "weUSDT", Mint: solana.MustPublicKeyFromBase58("Dn4noZ5jgGfkntzcQSUZ8czkreiZ1ForXYoV2H8Dm7S1"), Decimals: 6},
		{Symbol: "wbBUSD", Mint: solana.MustPublicKeyFromBase58("5RpUwQ8wtdPCZHhu6MERp2RGrpobsbZ6MH5dDHkUjs2"), Decimals: 8},
		{Symbol: "wpUSDC", Mint: solana.MustPublicKeyFromBase58("E2VmbootbVCBkMNNxKQgCLMS1X3NoGMaYAsufaAsf7M"), Decimals: 6},
	}
}

// Native SOL is swapped as wrapped SOL.
func defaultAliases() map[string]string {
	return map[string]string{"SOL": "WSOL"}
}

func pk(s string) solana.PublicKey { return solana.MustPublicKeyFromBase58(s) }

func defaultPools() []venue.Venue {
	return []venue.Venue{
		&venue.MercurialPool{
			Label:       "wUSD-4Pool",
			ProgramID:   MercurialProgramID,
			SwapAccount: pk("USD42Jvem43aBSLqT83GZmvRbzAjpKBonQYBQhni7Cv"),
			Authority:   pk("3m15qNJDM5zydsYNJzkFYXE7iGCVnkKz1mrmbawrDUAH"),
			Reserves: []solana.PublicKey{
				pk("54q2ct7kTknGvADuHSXjtnKqMbmNQ4xpDVK2xgcnh1xv"),
				pk("5cvqiPREvEYmhvBt3cZ7fmrCE6tbYvwkAiuvf1pHUPBq"),
				pk("9gVstb8HkuYX8PqjLSc9b9zLMhFZwWX7k3ofLcWy7wyS"),
				pk("HLdcfovcXkHKm4iQWNQZhJypySmuGa1PGoTuB6L68hhZ"),
			},
		},
		&venue.MercurialPool{
			Label:       "wbBUSD-4Pool",
			ProgramID:   MercurialProgramID,
			SwapAccount: pk("BUSDXyZeFXrcEkETHfgGh5wfqavmfC8ZJ8BbRP33ctaG"),
			Authority:   pk("D9QnVSaKxcoYHhXpyhpHWjVhY1xtNxaQbuHocjHKVzf1"),
			Reserves: []solana.PublicKey{
				pk("2FRWh8BZfpeuh8Pmg7ezHvBezW8yiEGG6Fy8pCnHVyq1"),
				pk("8m5D8rtDdP67qZyZTXwLozVCsXJMcSiXnroWoRn9GZga"),
				pk("3CF2cmVJxnWKt4J4u5tzsNSYVcSvmWqbbb4iJMEmzSRr"),
				pk("5Nn1Fm15FqjD5DbMFBQ93Rrwppzei5GghENMmJt5qRpR"),
			},
		},
		// Saber pools below are registered without mints and trade A to B.
		&venue.SaberPool{
			Label:       "wpUSDC",
			ProgramID:   SaberProgramID,
			SwapAccount: pk("MATgk4zXLXtYkwBH678J1xZbRDZ45LicNzkRBHkxTuY"),
			Authority:   pk("F6JFfyWaKTZY94rRzR5ftrtEKBS7aNLu1vYQiKuYhTZ6"),
			ReserveA:    pk("GN7Yuet3UyiWS5YVkEHv6oQKi4HGBJc3XDPt9zQhAqZz"),
			ReserveB:    pk("y8dALFo1bJrSzPYjMX14HJX448pXqYmrfXHD1K8MXih"),
			AdminFeeA:   pk("5A9qZYyeaw8qJoTxBcSqbdDfyiJGXAc1WzsvgUeNALng"),
			AdminFeeB:   pk("5A9qZYyeaw8qJoTxBcSqbdDfyiJGXAc1WzsvgUeNALng"),
		},
		&venue.SaberPool{
			Label:       "weUSDC",
			ProgramID:   SaberProgramID,
			SwapAccount: pk("GokA1R67GqSavkd15zR62QD68Tuc5AEfvjssntVDEbM8"),
			Authority:   pk("7XFMgfxhDURuaPwhUkXAy6uQJCoC3HPpjiZBqcot57Ge"),
			ReserveA:    pk("4DPCj6Z1DsG6HUtwSogBGqXEUxdEV5a8YVrrFtcnz7UW"),
			ReserveB:    pk("3YB7hfpBdbQEuZqLGWVDpRPmeZWCUsrrWyqGXegnQ6Cg"),
			AdminFeeA:   pk("5WemKHzh1RjGjQGtp79yqP4yCEvmkNRcyN8qt9q6h46r"),
			AdminFeeB:   pk("5WemKHzh1RjGjQGtp79yqP4yCEvmkNRcyN8qt9q6h46r"),
		},
	}
}

func mustAddress(s string) bridge.Address32 {
	a, err := bridge.ParseAddress32(s)
	if err != nil {
		panic(err)
	}
	return a
}

func defaultTargets() []BridgeTarget {
	return []BridgeTarget{
		{Chain: bridge.ChainEthereum, Pool: "wUSD-4Pool", Token: "weUSDT",
			OriginAddress: mustAddress("0xdAC17F958D2ee523a2206206994597C13D831ec7")},
		{Chain: bridge.ChainBSC, Pool: "wbBUSD-4Pool", Token: "wbBUSD",
			OriginAddress: mustAddress("0xe9e7cea3dedca5984780bafc599bd69add087d56")},
		{Chain: bridge.ChainPolygon, Pool: "wpUSDC", Token: "wpUSDC",
			OriginAddress: mustAddress("0x2791bca1f2de4661ed88a30c99a7a9449aa84174")},
	}
}
