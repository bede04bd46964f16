package main

import (
	"context"
	"crypto/ed25519"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/code-escrow/pkg/solana"
	"github.com/code-payments/code-escrow/pkg/solana/escrow"
	"github.com/code-payments/code-escrow/pkg/solana/runtime"
	"github.com/code-payments/code-escrow/pkg/solana/system"
	"github.com/code-payments/code-escrow/pkg/solana/token"
)

const (
	scenarioFulfill = "fulfill"
	scenarioCancel  = "cancel"

	lamportsPerWallet = 10_000_000_000
	tokensPerWallet   = 1_000_000
	mintDecimals      = 6
)

type participants struct {
	payer     ed25519.PublicKey
	authority ed25519.PublicKey
	maker     ed25519.PublicKey
	taker     ed25519.PublicKey
}

// runScenario opens an escrow and settles it according to scenario, once per
// token program. Both assets of an escrow share a single token program.
func runScenario(ctx context.Context, bank *runtime.Bank, program ed25519.PublicKey, scenario string, config Config) error {
	log := logrus.StandardLogger().WithFields(logrus.Fields{
		"type":     "escrow-localnet",
		"scenario": scenario,
	})

	if scenario != scenarioFulfill && scenario != scenarioCancel {
		return errors.Errorf("unsupported scenario: %s", scenario)
	}

	wallets, err := newParticipants(ctx, bank)
	if err != nil {
		return err
	}

	for _, tokenProgram := range []ed25519.PublicKey{token.ProgramKey, token.Token2022ProgramKey} {
		programLog := log.WithField("token_program", base58.Encode(tokenProgram))

		mintA, err := createMint(ctx, bank, wallets, tokenProgram)
		if err != nil {
			return err
		}
		mintB, err := createMint(ctx, bank, wallets, tokenProgram)
		if err != nil {
			return err
		}

		makerAtaA, err := createFundedTokenAccount(ctx, bank, wallets, wallets.maker, mintA, tokenProgram)
		if err != nil {
			return err
		}
		takerAtaB, err := createFundedTokenAccount(ctx, bank, wallets, wallets.taker, mintB, tokenProgram)
		if err != nil {
			return err
		}

		escrowAddress, _, err := escrow.GetEscrowAddress(&escrow.GetEscrowAddressArgs{
			Program: program,
			Maker:   wallets.maker,
			Nonce:   config.Nonce,
		})
		if err != nil {
			return errors.Wrap(err, "error deriving escrow address")
		}
		vault, _, err := escrow.GetVaultAddress(&escrow.GetVaultAddressArgs{
			Escrow:       escrowAddress,
			Mint:         mintA,
			TokenProgram: tokenProgram,
		})
		if err != nil {
			return errors.Wrap(err, "error deriving vault address")
		}

		open := escrow.NewOpenInstruction(
			program,
			&escrow.OpenInstructionAccounts{
				Maker:        wallets.maker,
				Escrow:       escrowAddress,
				MintA:        mintA,
				MintB:        mintB,
				MakerAtaA:    makerAtaA,
				Vault:        vault,
				TokenProgram: tokenProgram,
			},
			&escrow.OpenInstructionArgs{
				Nonce:           config.Nonce,
				RequestedAmount: config.RequestedAmount,
				DepositAmount:   config.DepositAmount,
			},
		)
		if err := bank.ProcessTransaction(ctx, []ed25519.PublicKey{wallets.maker}, open); err != nil {
			return describe(err, "error opening escrow")
		}

		programLog.WithFields(logrus.Fields{
			"escrow": base58.Encode(escrowAddress),
			"vault":  base58.Encode(vault),
		}).Info("escrow opened")

		takerAtaA, _, err := token.GetAssociatedAccountAndBump(wallets.taker, mintA, tokenProgram)
		if err != nil {
			return errors.Wrap(err, "error deriving taker token account")
		}
		makerAtaB, _, err := token.GetAssociatedAccountAndBump(wallets.maker, mintB, tokenProgram)
		if err != nil {
			return errors.Wrap(err, "error deriving maker token account")
		}

		switch scenario {
		case scenarioFulfill:
			fulfill := escrow.NewFulfillInstruction(
				program,
				&escrow.FulfillInstructionAccounts{
					Taker:        wallets.taker,
					Maker:        wallets.maker,
					Escrow:       escrowAddress,
					MintA:        mintA,
					MintB:        mintB,
					Vault:        vault,
					TakerAtaA:    takerAtaA,
					TakerAtaB:    takerAtaB,
					MakerAtaB:    makerAtaB,
					TokenProgram: tokenProgram,
				},
			)
			if err := bank.ProcessTransaction(ctx, []ed25519.PublicKey{wallets.taker}, fulfill); err != nil {
				return describe(err, "error fulfilling escrow")
			}
		case scenarioCancel:
			cancel := escrow.NewCancelInstruction(
				program,
				&escrow.CancelInstructionAccounts{
					Maker:        wallets.maker,
					Escrow:       escrowAddress,
					MintA:        mintA,
					Vault:        vault,
					MakerAtaA:    makerAtaA,
					TokenProgram: tokenProgram,
				},
			)
			if err := bank.ProcessTransaction(ctx, []ed25519.PublicKey{wallets.maker}, cancel); err != nil {
				return describe(err, "error cancelling escrow")
			}
		}

		balances := logrus.Fields{}
		for name, address := range map[string]ed25519.PublicKey{
			"maker_ata_a": makerAtaA,
			"maker_ata_b": makerAtaB,
			"taker_ata_a": takerAtaA,
			"taker_ata_b": takerAtaB,
		} {
			balance, err := bank.GetTokenBalance(ctx, address)
			if err == runtime.ErrNotTokenAccount {
				balance = 0
			} else if err != nil {
				return err
			}
			balances[name] = balance
		}

		exists, err := bank.Exists(ctx, escrowAddress)
		if err != nil {
			return err
		}
		balances["escrow_exists"] = exists

		programLog.WithFields(balances).Info("escrow settled")
	}

	return nil
}

func newParticipants(ctx context.Context, bank *runtime.Bank) (*participants, error) {
	keys := make([]ed25519.PublicKey, 4)
	for i := range keys {
		pub, _, err := ed25519.GenerateKey(nil)
		if err != nil {
			return nil, errors.Wrap(err, "error generating key")
		}
		keys[i] = pub

		if err := bank.Airdrop(ctx, pub, lamportsPerWallet); err != nil {
			return nil, errors.Wrap(err, "error funding wallet")
		}
	}

	return &participants{
		payer:     keys[0],
		authority: keys[1],
		maker:     keys[2],
		taker:     keys[3],
	}, nil
}

func createMint(ctx context.Context, bank *runtime.Bank, wallets *participants, tokenProgram ed25519.PublicKey) (ed25519.PublicKey, error) {
	mint, _, err := ed25519.GenerateKey(nil)
	if err != nil {
		return nil, errors.Wrap(err, "error generating mint")
	}

	size := uint64(token.MintSize)
	if tokenProgram.Equal(token.Token2022ProgramKey) {
		size = token.ExtendedAccountTypeOffset + 1
	}

	err = bank.ProcessTransaction(
		ctx,
		[]ed25519.PublicKey{wallets.payer, mint},
		system.CreateAccount(wallets.payer, mint, tokenProgram, bank.Rent(ctx).MinimumBalance(size), size),
		token.InitializeMint2(tokenProgram, mint, mintDecimals, wallets.authority, nil),
	)
	if err != nil {
		return nil, describe(err, "error creating mint")
	}
	return mint, nil
}

func createFundedTokenAccount(ctx context.Context, bank *runtime.Bank, wallets *participants, owner, mint, tokenProgram ed25519.PublicKey) (ed25519.PublicKey, error) {
	create, address, err := token.CreateAssociatedTokenAccount(wallets.payer, owner, mint, tokenProgram)
	if err != nil {
		return nil, errors.Wrap(err, "error deriving token account")
	}

	err = bank.ProcessTransaction(
		ctx,
		[]ed25519.PublicKey{wallets.payer, wallets.authority},
		create,
		token.MintTo(tokenProgram, mint, address, wallets.authority, tokensPerWallet),
	)
	if err != nil {
		return nil, describe(err, "error creating token account")
	}
	return address, nil
}

// describe annotates escrow program failures with their error name
func describe(err error, message string) error {
	var ixErr solana.InstructionError
	if errors.As(err, &ixErr) {
		if code := ixErr.CustomError(); code != nil {
			if name, ok := escrow.GetCustomErrorName(*code); ok {
				return errors.Wrapf(err, "%s (%s)", message, name)
			}
		}
	}
	return errors.Wrap(err, message)
}
