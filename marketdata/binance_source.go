package marketdata

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	binance "github.com/adshao/go-binance/v2"

	"github.com/kestrel-trading/kestrel/models"
)

// binanceAPI narrows the go-binance client down to the one call BinanceSource
// needs, so tests can substitute a fake without standing up a client.
type binanceAPI interface {
	GetKlines(symbol, interval string, limit int) ([]*binance.Kline, error)
}

type defaultBinanceAPI struct {
	client *binance.Client
}

func (a *defaultBinanceAPI) GetKlines(symbol, interval string, limit int) ([]*binance.Kline, error) {
	return a.client.NewKlinesService().Symbol(symbol).Interval(interval).Limit(limit).Do(context.Background())
}

// BinanceSource polls Binance's public klines endpoint on a fixed interval
// and replays each newly-closed candle as a PriceBar. It is the crypto leg
// of the live PriceSource pair; BinanceSource only ever emits bars once a
// candle has closed, never the currently-forming one.
type BinanceSource struct {
	api      binanceAPI
	security models.Security
	interval string
	poll     time.Duration

	lastOpenTime int64
}

// NewBinanceSource builds a BinanceSource for sec (an AssetTypeCrypto
// security) polling Binance's klineInterval candles (e.g. "1m") every poll.
func NewBinanceSource(sec models.Security, klineInterval string, poll time.Duration) *BinanceSource {
	return &BinanceSource{
		api:      &defaultBinanceAPI{client: binance.NewClient("", "")},
		security: sec,
		interval: klineInterval,
		poll:     poll,
	}
}

func convertSymbol(ticker string) string {
	symbol := strings.ToUpper(ticker)
	symbol = strings.ReplaceAll(symbol, "/", "")
	symbol = strings.ReplaceAll(symbol, "-", "")
	if strings.HasSuffix(symbol, "USD") && !strings.HasSuffix(symbol, "USDT") {
		symbol += "T"
	}
	return symbol
}

// Next blocks until the next closed candle is available, the poll interval
// elapses with nothing new, or ctx is cancelled.
func (s *BinanceSource) Next(ctx context.Context) (models.PriceBar, error) {
	for {
		select {
		case <-ctx.Done():
			return models.PriceBar{}, ctx.Err()
		default:
		}

		klines, err := s.api.GetKlines(convertSymbol(s.security.Ticker), s.interval, 2)
		if err != nil {
			return models.PriceBar{}, fmt.Errorf("binance: fetch klines for %s: %w", s.security.Ticker, err)
		}
		if len(klines) >= 2 {
			k := klines[len(klines)-2] // last fully-closed candle
			if k.OpenTime > s.lastOpenTime {
				s.lastOpenTime = k.OpenTime
				bar, err := klineToBar(s.security, k)
				if err != nil {
					return models.PriceBar{}, fmt.Errorf("binance: %w", err)
				}
				return bar, nil
			}
		}

		select {
		case <-ctx.Done():
			return models.PriceBar{}, ctx.Err()
		case <-time.After(s.poll):
		}
	}
}

func klineToBar(sec models.Security, k *binance.Kline) (models.PriceBar, error) {
	open, err := strconv.ParseFloat(k.Open, 64)
	if err != nil {
		return models.PriceBar{}, err
	}
	high, err := strconv.ParseFloat(k.High, 64)
	if err != nil {
		return models.PriceBar{}, err
	}
	low, err := strconv.ParseFloat(k.Low, 64)
	if err != nil {
		return models.PriceBar{}, err
	}
	closePrice, err := strconv.ParseFloat(k.Close, 64)
	if err != nil {
		return models.PriceBar{}, err
	}
	volume, err := strconv.ParseFloat(k.Volume, 64)
	if err != nil {
		return models.PriceBar{}, err
	}

	bar := models.PriceBar{
		Security:   sec,
		Resolution: models.ResolutionMinute,
		Open:       models.PriceFromFloat(open),
		High:       models.PriceFromFloat(high),
		Low:        models.PriceFromFloat(low),
		Close:      models.PriceFromFloat(closePrice),
		Volume:     uint64(volume),
		StartTime:  time.UnixMilli(k.OpenTime),
		EndTime:    time.UnixMilli(k.CloseTime),
	}
	if err := bar.Validate(); err != nil {
		return models.PriceBar{}, err
	}
	return bar, nil
}

func (s *BinanceSource) Close() error { return nil }
