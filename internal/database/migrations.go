package database

// migrations maps a schema version to the SQL that produces it. Versions are
// applied in ascending order by RunMigrations.
var migrations = map[int]string{
	1: `
		CREATE TABLE IF NOT EXISTS households (
			id SERIAL PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS users (
			id SERIAL PRIMARY KEY,
			household_id INTEGER NOT NULL REFERENCES households(id),
			email VARCHAR(255) NOT NULL UNIQUE,
			display_name VARCHAR(255),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_users_household ON users(household_id);
	`,
	2: `
		CREATE TABLE IF NOT EXISTS storage_locations (
			id SERIAL PRIMARY KEY,
			household_id INTEGER NOT NULL REFERENCES households(id),
			name VARCHAR(100) NOT NULL,
			location_type VARCHAR(50) NOT NULL DEFAULT 'pantry',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE(household_id, name)
		);

		CREATE TABLE IF NOT EXISTS products (
			id SERIAL PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			category VARCHAR(50) NOT NULL DEFAULT 'other',
			barcode VARCHAR(100),
			brand VARCHAR(255),
			default_unit VARCHAR(50),
			average_shelf_life_days INTEGER,
			average_price DECIMAL(10, 2),
			last_price DECIMAL(10, 2),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE UNIQUE INDEX IF NOT EXISTS idx_products_barcode ON products(barcode) WHERE barcode IS NOT NULL;
		CREATE INDEX IF NOT EXISTS idx_products_name ON products(LOWER(name));
	`,
	3: `
		CREATE TABLE IF NOT EXISTS receipts (
			id SERIAL PRIMARY KEY,
			household_id INTEGER NOT NULL REFERENCES households(id),
			uploaded_by INTEGER NOT NULL REFERENCES users(id),
			merchant_name VARCHAR(255),
			merchant_address TEXT,
			purchase_date TIMESTAMPTZ,
			total_amount DECIMAL(10, 2),
			tax_amount DECIMAL(10, 2),
			currency VARCHAR(3) NOT NULL DEFAULT 'USD',
			receipt_number VARCHAR(100),
			payment_method VARCHAR(50),
			image_key VARCHAR(512),
			ocr_provider VARCHAR(50),
			ocr_raw_response JSONB,
			processing_time_ms INTEGER,
			processing_status VARCHAR(20) NOT NULL DEFAULT 'pending',
			processing_error TEXT,
			is_duplicate BOOLEAN NOT NULL DEFAULT FALSE,
			duplicate_of_id INTEGER REFERENCES receipts(id),
			items_added BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_receipts_household ON receipts(household_id, created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_receipts_status ON receipts(processing_status);
		CREATE INDEX IF NOT EXISTS idx_receipts_dedupe ON receipts(household_id, merchant_name, purchase_date);

		CREATE TABLE IF NOT EXISTS receipt_line_items (
			id SERIAL PRIMARY KEY,
			receipt_id INTEGER NOT NULL REFERENCES receipts(id) ON DELETE CASCADE,
			description VARCHAR(512) NOT NULL,
			quantity DECIMAL(10, 3) NOT NULL DEFAULT 1,
			unit VARCHAR(50),
			unit_price DECIMAL(10, 2),
			total_price DECIMAL(10, 2),
			matched_product_id INTEGER REFERENCES products(id),
			confidence_score DECIMAL(4, 3),
			user_corrected_name VARCHAR(512),
			category VARCHAR(50),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_line_items_receipt ON receipt_line_items(receipt_id);
	`,
	4: `
		CREATE TABLE IF NOT EXISTS inventory_items (
			id SERIAL PRIMARY KEY,
			household_id INTEGER NOT NULL REFERENCES households(id),
			added_by INTEGER NOT NULL REFERENCES users(id),
			receipt_id INTEGER REFERENCES receipts(id) ON DELETE SET NULL,
			location_id INTEGER REFERENCES storage_locations(id),
			name VARCHAR(255) NOT NULL,
			category VARCHAR(50) NOT NULL DEFAULT 'other',
			barcode VARCHAR(100),
			quantity DECIMAL(10, 3) NOT NULL DEFAULT 1,
			unit VARCHAR(50),
			original_quantity DECIMAL(10, 3) NOT NULL DEFAULT 1,
			purchase_date TIMESTAMPTZ,
			expiration_date TIMESTAMPTZ,
			opened_date TIMESTAMPTZ,
			price DECIMAL(10, 2),
			currency VARCHAR(3) NOT NULL DEFAULT 'USD',
			is_opened BOOLEAN NOT NULL DEFAULT FALSE,
			is_wasted BOOLEAN NOT NULL DEFAULT FALSE,
			waste_reason VARCHAR(100),
			wasted_date TIMESTAMPTZ,
			notes TEXT,
			brand VARCHAR(255),
			store VARCHAR(255),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_inventory_household ON inventory_items(household_id);
		CREATE INDEX IF NOT EXISTS idx_inventory_expiration ON inventory_items(household_id, expiration_date)
			WHERE is_wasted = FALSE;
		CREATE INDEX IF NOT EXISTS idx_inventory_category ON inventory_items(household_id, category);

		CREATE TABLE IF NOT EXISTS user_actions (
			id SERIAL PRIMARY KEY,
			household_id INTEGER NOT NULL REFERENCES households(id),
			user_id INTEGER NOT NULL REFERENCES users(id),
			action_type VARCHAR(50) NOT NULL,
			entity_type VARCHAR(50) NOT NULL,
			entity_id INTEGER,
			old_state JSONB,
			new_state JSONB,
			is_undone BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_actions_household ON user_actions(household_id, created_at DESC);
	`,
	5: `
		CREATE TABLE IF NOT EXISTS shopping_lists (
			id SERIAL PRIMARY KEY,
			household_id INTEGER NOT NULL REFERENCES households(id),
			created_by INTEGER NOT NULL REFERENCES users(id),
			name VARCHAR(255) NOT NULL,
			store VARCHAR(255),
			status VARCHAR(20) NOT NULL DEFAULT 'active',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			completed_at TIMESTAMPTZ
		);

		CREATE INDEX IF NOT EXISTS idx_shopping_lists_household ON shopping_lists(household_id, status);

		CREATE TABLE IF NOT EXISTS shopping_list_items (
			id SERIAL PRIMARY KEY,
			shopping_list_id INTEGER NOT NULL REFERENCES shopping_lists(id) ON DELETE CASCADE,
			name VARCHAR(255) NOT NULL,
			quantity DECIMAL(10, 3) NOT NULL DEFAULT 1,
			unit VARCHAR(50),
			category VARCHAR(50),
			aisle VARCHAR(100),
			estimated_price DECIMAL(10, 2),
			is_purchased BOOLEAN NOT NULL DEFAULT FALSE,
			purchased_at TIMESTAMPTZ,
			is_staple BOOLEAN NOT NULL DEFAULT FALSE,
			notes TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_shopping_items_list ON shopping_list_items(shopping_list_id);
	`,
	6: `
		CREATE TABLE IF NOT EXISTS recipes (
			id SERIAL PRIMARY KEY,
			household_id INTEGER REFERENCES households(id),
			name VARCHAR(255) NOT NULL,
			description TEXT,
			meal_type VARCHAR(50),
			prep_minutes INTEGER,
			servings INTEGER,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS meal_plans (
			id SERIAL PRIMARY KEY,
			household_id INTEGER NOT NULL REFERENCES households(id),
			created_by INTEGER NOT NULL REFERENCES users(id),
			recipe_id INTEGER NOT NULL REFERENCES recipes(id),
			planned_date DATE NOT NULL,
			meal_type VARCHAR(50) NOT NULL,
			servings INTEGER NOT NULL DEFAULT 2,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_meal_plans_household ON meal_plans(household_id, planned_date);

		CREATE TABLE IF NOT EXISTS meal_suggestions (
			id SERIAL PRIMARY KEY,
			household_id INTEGER NOT NULL REFERENCES households(id),
			user_id INTEGER NOT NULL REFERENCES users(id),
			suggestions JSONB NOT NULL,
			inventory_snapshot JSONB,
			ai_provider VARCHAR(50) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`,
}
