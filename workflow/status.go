package workflow

import "github.com/yeremiapane/shortage-app/models"

// DeriveStatus menghitung status berikutnya dari kandidat qty available.
//
// Asimetri di sini disengaja dan harus dipertahankan persis:
//   - shortage hilang  -> selalu SUFFICIENT
//   - masuk shortage dari SUFFICIENT -> selalu SHORTAGE_PENDING_SALE
//   - sudah di shortage -> status dipertahankan; edit qty tidak boleh
//     memajukan atau memundurkan tahap review Sale/Source secara diam-diam.
func DeriveStatus(current models.SODStatus, remainingToShip, candidateAvailable int) models.SODStatus {
	shortage := remainingToShip - candidateAvailable
	if shortage <= 0 {
		return models.StatusSufficient
	}
	if current == models.StatusSufficient {
		return models.StatusShortagePendingSale
	}
	return current
}

// InitialStatus -> status item yang baru di-fetch (qtyAvailable selalu 0)
func InitialStatus(remainingToShip int) models.SODStatus {
	return DeriveStatus(models.StatusSufficient, remainingToShip, 0)
}
