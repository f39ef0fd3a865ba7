//go:build integration

package repository_test

// Runs the repositories and services against a real Postgres with the goose
// schema applied. Run with: go test -tags integration ./internal/repository/...

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"logospos/internal/dto"
	"logospos/internal/infra"
	"logospos/internal/model"
	"logospos/internal/repository"
	"logospos/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"gorm.io/gorm"
)

func newPostgres(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := context.Background()
	pgC, err := tcPostgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:15-alpine"),
		tcPostgres.WithDatabase("logospos"),
		tcPostgres.WithUsername("logospos"),
		tcPostgres.WithPassword("logospos"),
		testcontainers.WithWaitStrategy(tcPostgres.BasicWaitStrategies()...),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(context.Background()) })

	dsn, err := pgC.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	db, err := infra.NewDatabase(dsn)
	require.NoError(t, err)
	require.NoError(t, infra.Migrate(db))
	return db
}

func nuevoUsuario(t *testing.T, db *gorm.DB, username string) model.Operador {
	t.Helper()
	u := &model.Usuario{Username: username, Nombre: username, PasswordHash: "x", Rol: "cajero", Activo: true}
	require.NoError(t, repository.NewUsuarioRepository(db).Create(context.Background(), u))
	return model.Operador{ID: u.ID, Username: u.Username, Rol: u.Rol}
}

func TestPostgres_AperturasConcurrentes(t *testing.T) {
	db := newPostgres(t)
	op := nuevoUsuario(t, db, "maria")
	repo := repository.NewCajaRepository(db)

	// One service per device: no shared in-process state between them.
	var ganadas, duplicadas atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			svc := service.NewCajaService(repo, nil)
			_, err := svc.Abrir(context.Background(), op, dto.AbrirCajaRequest{MontoInicial: decimal.NewFromInt(500)})
			switch {
			case err == nil:
				ganadas.Add(1)
			case errors.Is(err, service.ErrSesionDuplicada):
				duplicadas.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, ganadas.Load())
	assert.EqualValues(t, 7, duplicadas.Load())

	abierta, err := repo.FindSesionAbiertaPorUsuario(context.Background(), op.ID)
	require.NoError(t, err)
	require.NotNil(t, abierta)
}

func TestPostgres_PagosConcurrentesBloqueanFila(t *testing.T) {
	db := newPostgres(t)
	op := nuevoUsuario(t, db, "maria")
	clientes := repository.NewClienteRepository(db)
	svc := service.NewCuentaService(repository.NewCuentaRepository(db), clientes, time.UTC)
	ctx := context.Background()

	cliente := &model.Cliente{Nombre: "Ana Pérez", Activo: true}
	require.NoError(t, clientes.Create(ctx, cliente))
	cuenta, err := svc.Crear(ctx, dto.CrearCuentaRequest{
		ClienteID:        cliente.ID.String(),
		Concepto:         "Factura 001",
		MontoTotal:       decimal.NewFromInt(100),
		FechaVencimiento: time.Now().UTC().AddDate(0, 0, 7).Format("2006-01-02"),
	})
	require.NoError(t, err)
	id := uuid.MustParse(cuenta.ID)

	var aplicados, rechazados atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.AplicarPago(ctx, op, id, dto.RegistrarPagoRequest{Monto: decimal.NewFromInt(30), MetodoPago: "efectivo"})
			switch {
			case err == nil:
				aplicados.Add(1)
			case errors.Is(err, service.ErrPagoExcedePendiente):
				rechazados.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 3, aplicados.Load())
	assert.EqualValues(t, 7, rechazados.Load())

	detalle, err := svc.ObtenerConPagos(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "90", detalle.Cuenta.MontoPagado.String())
	assert.Equal(t, model.EstadoCuentaParcial, detalle.Cuenta.Estado)
	assert.Len(t, detalle.Pagos, 3)
}

func nuevaCuenta(t *testing.T, db *gorm.DB, vence time.Time) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	clientes := repository.NewClienteRepository(db)
	cliente := &model.Cliente{Nombre: "Ana Pérez", Telefono: ptr("8095550101"), Activo: true}
	require.NoError(t, clientes.Create(ctx, cliente))
	cuenta, err := service.NewCuentaService(repository.NewCuentaRepository(db), clientes, time.UTC).Crear(ctx, dto.CrearCuentaRequest{
		ClienteID:        cliente.ID.String(),
		Concepto:         "Factura 002",
		MontoTotal:       decimal.NewFromInt(250),
		FechaVencimiento: vence.Format("2006-01-02"),
	})
	require.NoError(t, err)
	return uuid.MustParse(cuenta.ID)
}

func ptr(s string) *string { return &s }

func TestPostgres_ProgramacionConcurrenteUnPendiente(t *testing.T) {
	db := newPostgres(t)
	cuentaID := nuevaCuenta(t, db, time.Now().UTC().AddDate(0, 0, 1))
	recs := repository.NewRecordatorioRepository(db)
	cuentas := repository.NewCuentaRepository(db)

	// One service per replica, all scanning at once.
	var creados, omitidos atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			svc := service.NewRecordatorioService(recs, cuentas, nil, nil, time.UTC)
			res, err := svc.ProgramarVencimientos(context.Background(), 3)
			if !assert.NoError(t, err) {
				return
			}
			creados.Add(int32(res.Creados))
			omitidos.Add(int32(res.Omitidos))
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, creados.Load())
	assert.EqualValues(t, 7, omitidos.Load())

	var n int64
	require.NoError(t, db.Model(&model.Recordatorio{}).
		Where("cuenta_id = ? AND tipo = ? AND estado = ?", cuentaID, model.TipoRecordatorioVencimiento, model.EstadoRecordatorioPendiente).
		Count(&n).Error)
	assert.EqualValues(t, 1, n)
}

// conteoTransporte records how many deliveries reached the gateway.
type conteoTransporte struct{ n atomic.Int32 }

func (c *conteoTransporte) Send(context.Context, string, string) error {
	c.n.Add(1)
	time.Sleep(10 * time.Millisecond)
	return nil
}

func TestPostgres_EnviosConcurrentesEntreganUnaVez(t *testing.T) {
	db := newPostgres(t)
	cuentaID := nuevaCuenta(t, db, time.Now().UTC().AddDate(0, 0, 5))
	tr := &conteoTransporte{}
	svc := service.NewRecordatorioService(repository.NewRecordatorioRepository(db), repository.NewCuentaRepository(db),
		service.Transportes{model.CanalSMS: tr}, nil, time.UTC)
	rec, err := svc.Crear(context.Background(), dto.CrearRecordatorioRequest{CuentaID: cuentaID.String(), Canal: model.CanalSMS})
	require.NoError(t, err)
	id := uuid.MustParse(rec.ID)

	var enviados, terminales atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Enviar(context.Background(), id)
			switch {
			case err == nil:
				enviados.Add(1)
			case errors.Is(err, service.ErrRecordatorioTerminal):
				terminales.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, tr.n.Load())
	assert.EqualValues(t, 1, enviados.Load())
	assert.EqualValues(t, 4, terminales.Load())
}
