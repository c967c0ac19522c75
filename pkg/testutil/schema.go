package testutil

// InventorySchema is the inventory service DDL used by integration tests.
// Every tenant-owned table carries a tenant_id column with an RLS policy
// keyed on the app.current_tenant session variable.
const InventorySchema = `
CREATE TABLE IF NOT EXISTS items (
	id UUID PRIMARY KEY,
	tenant_id UUID NOT NULL,
	item_number BIGINT NOT NULL,
	name VARCHAR(255) NOT NULL,
	description TEXT,
	category VARCHAR(50) NOT NULL,
	unit VARCHAR(50) NOT NULL,
	min_stock_level INT NOT NULL DEFAULT 0 CHECK (min_stock_level >= 0),
	reorder_point INT NOT NULL DEFAULT 0 CHECK (reorder_point >= 0),
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	created_by UUID,
	updated_by UUID,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	CONSTRAINT items_category_valid CHECK (category IN
		('MEDICATION', 'SURGICAL_TOOL', 'PPE', 'CONSUMABLE', 'EQUIPMENT', 'OTHER')),
	CONSTRAINT items_tenant_item_number_unique UNIQUE (tenant_id, item_number)
);

CREATE TABLE IF NOT EXISTS item_medical_codes (
	id UUID PRIMARY KEY,
	tenant_id UUID NOT NULL,
	item_id UUID NOT NULL REFERENCES items(id) ON DELETE CASCADE,
	code VARCHAR(50) NOT NULL,
	code_type VARCHAR(20) NOT NULL,
	description TEXT
);

CREATE TABLE IF NOT EXISTS locations (
	id UUID PRIMARY KEY,
	tenant_id UUID NOT NULL,
	name VARCHAR(255) NOT NULL,
	description TEXT,
	facility_id UUID,
	location_type VARCHAR(50) NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS suppliers (
	id UUID PRIMARY KEY,
	tenant_id UUID NOT NULL,
	name VARCHAR(255) NOT NULL,
	contact_person VARCHAR(255) NOT NULL DEFAULT '',
	email VARCHAR(255) NOT NULL DEFAULT '',
	phone VARCHAR(50) NOT NULL DEFAULT '',
	address TEXT NOT NULL DEFAULT '',
	tax_id VARCHAR(100),
	registration_number VARCHAR(100),
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS batches (
	id UUID PRIMARY KEY,
	tenant_id UUID NOT NULL,
	item_id UUID NOT NULL REFERENCES items(id),
	batch_number VARCHAR(100) NOT NULL,
	manufacturing_date DATE,
	expiry_date DATE NOT NULL,
	quantity INT NOT NULL DEFAULT 0,
	unit_cost_cents INT NOT NULL DEFAULT 0,
	location_id UUID NOT NULL REFERENCES locations(id),
	supplier_id UUID REFERENCES suppliers(id),
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	CONSTRAINT batches_quantity_non_negative CHECK (quantity >= 0),
	CONSTRAINT batches_lot_location_unique UNIQUE (tenant_id, item_id, batch_number, expiry_date, location_id)
);

CREATE TABLE IF NOT EXISTS stock_transactions (
	id UUID PRIMARY KEY,
	tenant_id UUID NOT NULL,
	item_id UUID NOT NULL REFERENCES items(id),
	batch_id UUID NOT NULL REFERENCES batches(id),
	transaction_type VARCHAR(20) NOT NULL,
	quantity INT NOT NULL,
	from_location_id UUID REFERENCES locations(id),
	to_location_id UUID REFERENCES locations(id),
	reference VARCHAR(255),
	notes TEXT,
	performed_by UUID,
	performed_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	CONSTRAINT stock_transactions_type_valid CHECK (transaction_type IN
		('STOCK_IN', 'STOCK_OUT', 'TRANSFER', 'ADJUSTMENT', 'EXPIRED', 'DAMAGED'))
);

CREATE TABLE IF NOT EXISTS purchase_orders (
	id UUID PRIMARY KEY,
	tenant_id UUID NOT NULL,
	order_number BIGINT NOT NULL,
	supplier_id UUID NOT NULL REFERENCES suppliers(id),
	status VARCHAR(20) NOT NULL DEFAULT 'DRAFT',
	total_cents BIGINT NOT NULL DEFAULT 0,
	expected_date DATE,
	received_date DATE,
	notes TEXT,
	approved_by UUID,
	created_by UUID,
	updated_by UUID,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	CONSTRAINT purchase_orders_status_valid CHECK (status IN
		('DRAFT', 'PENDING', 'APPROVED', 'ORDERED', 'RECEIVED', 'CANCELLED')),
	CONSTRAINT purchase_orders_tenant_order_number_unique UNIQUE (tenant_id, order_number)
);

CREATE TABLE IF NOT EXISTS purchase_order_lines (
	id UUID PRIMARY KEY,
	tenant_id UUID NOT NULL,
	order_id UUID NOT NULL REFERENCES purchase_orders(id) ON DELETE CASCADE,
	item_id UUID NOT NULL REFERENCES items(id),
	quantity INT NOT NULL CHECK (quantity > 0),
	unit_price_cents INT NOT NULL DEFAULT 0,
	line_total_cents BIGINT NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS counters (
	tenant_id UUID NOT NULL,
	name VARCHAR(50) NOT NULL,
	value BIGINT NOT NULL DEFAULT 0,
	PRIMARY KEY (tenant_id, name)
);

ALTER TABLE items ENABLE ROW LEVEL SECURITY;
ALTER TABLE item_medical_codes ENABLE ROW LEVEL SECURITY;
ALTER TABLE locations ENABLE ROW LEVEL SECURITY;
ALTER TABLE suppliers ENABLE ROW LEVEL SECURITY;
ALTER TABLE batches ENABLE ROW LEVEL SECURITY;
ALTER TABLE stock_transactions ENABLE ROW LEVEL SECURITY;
ALTER TABLE purchase_orders ENABLE ROW LEVEL SECURITY;
ALTER TABLE purchase_order_lines ENABLE ROW LEVEL SECURITY;
ALTER TABLE counters ENABLE ROW LEVEL SECURITY;

DO $$
DECLARE
	t TEXT;
BEGIN
	FOREACH t IN ARRAY ARRAY['items', 'item_medical_codes', 'locations', 'suppliers',
		'batches', 'stock_transactions', 'purchase_orders', 'purchase_order_lines', 'counters']
	LOOP
		EXECUTE format(
			'DROP POLICY IF EXISTS tenant_isolation ON %I;
			 CREATE POLICY tenant_isolation ON %I
			 USING (tenant_id = current_setting(''app.current_tenant'')::uuid)
			 WITH CHECK (tenant_id = current_setting(''app.current_tenant'')::uuid)',
			t, t);
		-- FORCE applies the policy to the table owner too, which is what
		-- test connections run as.
		EXECUTE format('ALTER TABLE %I FORCE ROW LEVEL SECURITY', t);
	END LOOP;
END $$;
`
